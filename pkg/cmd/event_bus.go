package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/cadenzahq/cadenza/pkg/channels/gochannel"
	"github.com/cadenzahq/cadenza/pkg/channels/kafka"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
)

// NewEventBus builds the event bus for the requested provider: "kafka" for
// multi-process deployments, "gochannel" for in-process use.
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, "cadenza")
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
