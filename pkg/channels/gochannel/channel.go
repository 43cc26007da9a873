// Package gochannel provides the in-memory event bus channel used in local
// development and single-process deployments.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel builds a GoChannel pub/sub pair. The same instance serves both
// roles.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 1000,
			Persistent:          false,
		},
		logger,
	)

	return pubSub, pubSub, nil
}
