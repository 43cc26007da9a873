package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/events"
)

func newChannelBus(t *testing.T) EventBus {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	return NewWatermillEventBus(pubSub, pubSub)
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newChannelBus(t)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received *events.FollowUpSent
	)

	err := bus.Handle(events.FollowUpSentEvent, func(_ context.Context, event interface{}) error {
		mu.Lock()
		defer mu.Unlock()

		sent, ok := event.(*events.FollowUpSent)
		require.True(t, ok)
		received = sent

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.FollowUpSent{
		BaseEvent: events.NewBaseEvent(events.FollowUpSentEvent, "owner-1"),
		ItemID:    "q-1",
		BookingID: "booking-1",
		StepID:    "step-1",
		Channel:   "EMAIL",
		To:        "ana@example.com",
	}
	require.NoError(t, bus.Publish(ctx, "owner-1", sent))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return received != nil && received.ItemID == "q-1" && received.OwnerID == "owner-1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	bus := newChannelBus(t)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled bool

	err := bus.Handle(events.SweepCompletedEvent, func(_ context.Context, _ interface{}) error {
		handled = true

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	triggered := events.AutomationTriggered{
		BaseEvent:    events.NewBaseEvent(events.AutomationTriggeredEvent, "owner-1"),
		AutomationID: "auto-1",
	}
	require.NoError(t, bus.Publish(ctx, "owner-1", triggered))

	time.Sleep(100 * time.Millisecond)
	assert.False(t, handled)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newChannelBus(t)
	defer func() { _ = bus.Close() }()

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
