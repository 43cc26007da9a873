package sweeper

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// DefaultDueLimit caps how many items one due pass may act on across all
// tenants.
const DefaultDueLimit = 200

// DueSweeper drains PENDING follow-up items whose send time has passed.
type DueSweeper struct {
	persistence persistence.Persistence
	email       protocol.EmailSender
	sms         protocol.SMSSender
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewDueSweeper creates a due-item sweeper. email, sms and publisher may be
// nil; items needing a missing provider fail with a recorded error.
func NewDueSweeper(
	store persistence.Persistence,
	email protocol.EmailSender,
	sms protocol.SMSSender,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *DueSweeper {
	return &DueSweeper{
		persistence: store,
		email:       email,
		sms:         sms,
		publisher:   publisher,
		logger:      logger.With("module", "due_sweeper"),
		now:         time.Now,
	}
}

type dueRef struct {
	ownerID string
	item    *models.FollowUpQueueItem
}

// ProcessDue finds due PENDING items across all tenants, attempts delivery in
// send-time order up to limit, and records the outcome on each item. Failed
// items stay failed; there is no retry queue.
func (s *DueSweeper) ProcessDue(ctx context.Context, limit int) (*SweepStats, error) {
	if limit <= 0 {
		limit = DefaultDueLimit
	}

	owners, err := s.persistence.Owners(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stats := &SweepStats{}

	docs := make(map[string]*models.FollowUpDocument)

	var due []dueRef

	for _, ownerID := range owners {
		doc, err := s.persistence.FollowUps(ctx, ownerID)
		if err != nil {
			s.logger.Warn("skipping tenant with unreadable follow-up document",
				"owner_id", ownerID, "error", err)

			continue
		}

		docs[ownerID] = doc

		for _, item := range doc.Queue {
			if item.Status == models.QueueStatusPending && !item.SendAt.After(now) {
				due = append(due, dueRef{ownerID: ownerID, item: item})
			}
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].item.SendAt.Before(due[j].item.SendAt)
	})

	if len(due) > limit {
		due = due[:limit]
	}

	dirty := make(map[string]bool)

	for _, ref := range due {
		// Re-check right before acting; a racing sweep may have taken it.
		if ref.item.Status != models.QueueStatusPending {
			continue
		}

		stats.Processed++
		dirty[ref.ownerID] = true

		s.deliver(ctx, ref.ownerID, ref.item, now, stats)
	}

	for ownerID := range dirty {
		if err := s.persistence.SaveFollowUps(ctx, ownerID, docs[ownerID]); err != nil {
			s.logger.Error("failed to persist follow-up queue after sweep",
				"owner_id", ownerID, "error", err)
		}
	}

	publishSweepCompleted(ctx, s.publisher, s.logger, "due", stats)

	return stats, nil
}

func (s *DueSweeper) deliver(ctx context.Context, ownerID string, item *models.FollowUpQueueItem, now time.Time, stats *SweepStats) {
	var (
		sendErr      error
		providerGone bool
	)

	switch item.Channel {
	case models.ChannelEmail:
		if s.email == nil {
			providerGone = true
		} else {
			sendErr = s.email.SendEmail(ctx, ownerID, item.To, item.Subject, item.Body, "")
		}
	case models.ChannelSMS:
		if s.sms == nil {
			providerGone = true
		} else {
			sendErr = s.sms.SendSMS(ctx, ownerID, item.To, item.Body)
		}
	default:
		providerGone = true
	}

	if providerGone {
		item.Status = models.QueueStatusFailed
		item.Attempts++
		item.LastError = "no provider configured for channel " + string(item.Channel)
		stats.Skipped++

		return
	}

	if sendErr != nil {
		item.Status = models.QueueStatusFailed
		item.Attempts++
		item.LastError = sendErr.Error()
		stats.Failed++

		s.logger.Warn("follow-up delivery failed",
			"owner_id", ownerID, "item_id", item.ID, "channel", item.Channel, "error", sendErr)

		return
	}

	sentAt := now
	item.Status = models.QueueStatusSent
	item.Attempts++
	item.SentAt = &sentAt
	stats.Sent++

	s.publishSent(ctx, ownerID, item)
}

// publishSent emits the follow_up_sent re-entry event, best-effort.
func (s *DueSweeper) publishSent(ctx context.Context, ownerID string, item *models.FollowUpQueueItem) {
	if s.publisher == nil {
		return
	}

	event := events.FollowUpSent{
		BaseEvent: events.NewBaseEvent(events.FollowUpSentEvent, ownerID),
		ItemID:    item.ID,
		BookingID: item.BookingID,
		StepID:    item.StepID,
		StepName:  item.StepName,
		Channel:   item.Channel,
		To:        item.To,
	}

	if err := s.publisher.Publish(ctx, ownerID, event); err != nil {
		s.logger.Warn("failed to publish followup.sent", "owner_id", ownerID, "item_id", item.ID, "error", err)
	}
}

