// Package sweeper implements the periodic jobs that drain due follow-up
// messages, fire interval triggers and detect missed appointments. Sweeps are
// re-entrant and idempotent: safety comes from status re-checks at the point
// of mutation and debounce records, not from locks.
package sweeper

import (
	"context"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/events"
)

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// publishSweepCompleted emits the sweep.completed observability event,
// best-effort. Every sweeper publishes one per pass.
func publishSweepCompleted(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, sweep string, stats *SweepStats) {
	if publisher == nil {
		return
	}

	event := events.SweepCompleted{
		BaseEvent: events.NewBaseEvent(events.SweepCompletedEvent, ""),
		Sweep:     sweep,
		Processed: stats.Processed,
		Sent:      stats.Sent,
		Skipped:   stats.Skipped,
		Failed:    stats.Failed,
	}

	if err := publisher.Publish(ctx, sweep, event); err != nil {
		logger.Warn("failed to publish sweep.completed", "sweep", sweep, "error", err)
	}
}
