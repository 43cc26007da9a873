package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

const (
	// DefaultGraceMinutes is how long past a booking's end a tenant gets to
	// close it out before the booking counts as missed.
	DefaultGraceMinutes = 30

	// DefaultLookbackMinutes bounds how far back the missed sweep scans.
	DefaultLookbackMinutes = 7 * 24 * 60
)

// MissedSweeper fires missed_appointment events for bookings still SCHEDULED
// past their end time.
type MissedSweeper struct {
	persistence     persistence.Persistence
	bookings        protocol.BookingProvider
	engine          *engine.Engine
	publisher       eventbus.EventPublisher
	logger          *slog.Logger
	graceMinutes    int
	lookbackMinutes int
	now             func() time.Time
}

// NewMissedSweeper creates the missed-appointment sweeper. publisher may be
// nil.
func NewMissedSweeper(
	store persistence.Persistence,
	bookings protocol.BookingProvider,
	eng *engine.Engine,
	graceMinutes, lookbackMinutes int,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *MissedSweeper {
	if graceMinutes <= 0 {
		graceMinutes = DefaultGraceMinutes
	}

	if lookbackMinutes <= 0 {
		lookbackMinutes = DefaultLookbackMinutes
	}

	return &MissedSweeper{
		persistence:     store,
		bookings:        bookings,
		engine:          eng,
		publisher:       publisher,
		logger:          logger.With("module", "missed_sweeper"),
		graceMinutes:    graceMinutes,
		lookbackMinutes: lookbackMinutes,
		now:             time.Now,
	}
}

// Sweep fires one missed_appointment event per newly missed booking and
// records it in the tenant's fired set so later passes skip it.
func (s *MissedSweeper) Sweep(ctx context.Context) (*SweepStats, error) {
	owners, err := s.persistence.Owners(ctx)
	if err != nil {
		return nil, err
	}

	stats := &SweepStats{}

	for _, ownerID := range owners {
		fired, err := s.sweepTenant(ctx, ownerID)
		if err != nil {
			s.logger.Warn("missed sweep failed for tenant", "owner_id", ownerID, "error", err)
			stats.Failed++

			continue
		}

		stats.Processed += fired
		stats.Sent += fired
	}

	publishSweepCompleted(ctx, s.publisher, s.logger, "missed", stats)

	return stats, nil
}

func (s *MissedSweeper) sweepTenant(ctx context.Context, ownerID string) (int, error) {
	now := s.now().UTC()
	after := now.Add(-time.Duration(s.lookbackMinutes) * time.Minute)
	before := now.Add(-time.Duration(s.graceMinutes) * time.Minute)

	missed, err := s.bookings.ScheduledBookingsEndedBetween(ctx, ownerID, after, before)
	if err != nil {
		return 0, err
	}

	if len(missed) == 0 {
		return 0, nil
	}

	scheduleDoc, err := s.persistence.ScheduleState(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	fired := 0

	for _, booking := range missed {
		if scheduleDoc.State.BookingFired(booking.ID) {
			continue
		}

		event := &models.TriggerEvent{
			Kind: models.TriggerMissedAppointment,
			Contact: &models.Contact{
				ID:    booking.ContactID,
				Name:  booking.ContactName,
				Email: booking.ContactEmail,
				Phone: booking.ContactPhone,
			},
			Meta: models.EventMeta{
				BookingID:  booking.ID,
				CalendarID: booking.CalendarID,
			},
		}

		if err := s.engine.RunAll(ctx, ownerID, event); err != nil {
			s.logger.Warn("missed appointment run failed",
				"owner_id", ownerID, "booking_id", booking.ID, "error", err)
		}

		scheduleDoc.State.RecordBookingFired(booking.ID)
		fired++
	}

	if fired > 0 {
		if err := s.persistence.SaveScheduleState(ctx, ownerID, scheduleDoc); err != nil {
			return fired, err
		}
	}

	return fired, nil
}
