package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// DefaultMaxFiresPerTenant caps how many scheduled triggers one tenant may
// fire in a single pass.
const DefaultMaxFiresPerTenant = 20

// ScheduledSweeper fires scheduled_time trigger nodes whose interval has
// elapsed since their last firing.
type ScheduledSweeper struct {
	persistence  persistence.Persistence
	engine       *engine.Engine
	publisher    eventbus.EventPublisher
	logger       *slog.Logger
	maxPerTenant int
	now          func() time.Time
}

// NewScheduledSweeper creates the interval-trigger sweeper. publisher may be
// nil.
func NewScheduledSweeper(store persistence.Persistence, eng *engine.Engine, maxPerTenant int, publisher eventbus.EventPublisher, logger *slog.Logger) *ScheduledSweeper {
	if maxPerTenant <= 0 {
		maxPerTenant = DefaultMaxFiresPerTenant
	}

	return &ScheduledSweeper{
		persistence:  store,
		engine:       eng,
		publisher:    publisher,
		logger:       logger.With("module", "scheduled_sweeper"),
		maxPerTenant: maxPerTenant,
		now:          time.Now,
	}
}

// Sweep visits every tenant and fires each due scheduled trigger exactly once,
// recording the firing time as the debounce record.
func (s *ScheduledSweeper) Sweep(ctx context.Context) (*SweepStats, error) {
	owners, err := s.persistence.Owners(ctx)
	if err != nil {
		return nil, err
	}

	stats := &SweepStats{}

	for _, ownerID := range owners {
		fired, err := s.sweepTenant(ctx, ownerID)
		if err != nil {
			s.logger.Warn("scheduled sweep failed for tenant", "owner_id", ownerID, "error", err)
			stats.Failed++

			continue
		}

		stats.Processed += fired
		stats.Sent += fired
	}

	publishSweepCompleted(ctx, s.publisher, s.logger, "scheduled", stats)

	return stats, nil
}

func (s *ScheduledSweeper) sweepTenant(ctx context.Context, ownerID string) (int, error) {
	automations, err := s.persistence.Automations(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	scheduleDoc, err := s.persistence.ScheduleState(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	fired := 0

	for _, automation := range automations {
		if fired >= s.maxPerTenant {
			break
		}

		for _, trigger := range automation.TriggerNodes() {
			if fired >= s.maxPerTenant {
				break
			}

			config, ok := trigger.TriggerConfigOf()
			if !ok || config.Kind != models.TriggerScheduledTime {
				continue
			}

			key := models.ScheduleKey(automation.ID, trigger.ID)
			if !scheduleDoc.State.TriggerDue(key, config.IntervalMinutes, now) {
				continue
			}

			event := &models.TriggerEvent{
				Kind: models.TriggerScheduledTime,
				Meta: models.EventMeta{TriggerNodeID: trigger.ID},
			}

			s.engine.Run(ctx, ownerID, automation, event)
			scheduleDoc.State.RecordFired(key, now)
			fired++
		}
	}

	if fired > 0 {
		if err := s.persistence.SaveScheduleState(ctx, ownerID, scheduleDoc); err != nil {
			return fired, err
		}
	}

	return fired, nil
}
