// Package followup computes and reconciles the delayed-message queue for
// booking follow-ups.
package followup

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/template"
)

// Routine no-op reasons returned in ScheduleResult.Reason.
const (
	ReasonDisabled        = "followups_disabled"
	ReasonSiteNotFound    = "booking_site_not_found"
	ReasonBookingNotFound = "booking_not_found"
	ReasonNotScheduled    = "booking_not_scheduled"
)

// ScheduleResult reports one reconciliation pass. A routine precondition
// failure sets Reason and leaves the counters at zero; it is not an error.
type ScheduleResult struct {
	Scheduled int    `json:"scheduled"`
	Canceled  int    `json:"canceled"`
	Reason    string `json:"reason,omitempty"`
}

// Scheduler reconciles the persisted follow-up queue against the desired set
// of delayed messages for a booking.
type Scheduler struct {
	persistence persistence.Persistence
	bookings    protocol.BookingProvider
	directory   protocol.TenantDirectory
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewScheduler creates a follow-up scheduler. directory and publisher may be
// nil.
func NewScheduler(
	store persistence.Persistence,
	bookings protocol.BookingProvider,
	directory protocol.TenantDirectory,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		persistence: store,
		bookings:    bookings,
		directory:   directory,
		publisher:   publisher,
		logger:      logger.With("module", "followup_scheduler"),
		now:         time.Now,
	}
}

// ScheduleForBooking recomputes the desired queue items for the booking and
// reconciles the persisted queue: desired tuples are upserted, no longer
// desired PENDING items are canceled, and completed history is trimmed.
// Re-running with unchanged settings converges to the identical queue state.
func (s *Scheduler) ScheduleForBooking(ctx context.Context, ownerID, bookingID string) (*ScheduleResult, error) {
	doc, err := s.persistence.FollowUps(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if !doc.Settings.Enabled {
		return &ScheduleResult{Reason: ReasonDisabled}, nil
	}

	booking, err := s.bookings.BookingByID(ctx, ownerID, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrBookingSiteNotFound):
			return &ScheduleResult{Reason: ReasonSiteNotFound}, nil
		case errors.Is(err, protocol.ErrBookingNotFound):
			return &ScheduleResult{Reason: ReasonBookingNotFound}, nil
		default:
			return nil, err
		}
	}

	if booking.Status != models.BookingStatusScheduled {
		return &ScheduleResult{Reason: ReasonNotScheduled}, nil
	}

	var calendar *models.Calendar

	if booking.CalendarID != "" {
		calendar, err = s.bookings.CalendarByID(ctx, ownerID, booking.CalendarID)
		if err != nil {
			s.logger.Warn("calendar lookup failed, continuing without calendar fields",
				"owner_id", ownerID, "calendar_id", booking.CalendarID, "error", err)
			calendar = nil
		}
	}

	steps := doc.Settings.StepsForCalendar(booking.CalendarID)
	vars := s.buildVars(ctx, ownerID, booking, calendar)
	desired := s.desiredItems(ownerID, booking, calendar, steps, vars)

	result := s.reconcile(doc, bookingID, desired)

	if err := s.persistence.SaveFollowUps(ctx, ownerID, doc); err != nil {
		return nil, err
	}

	s.publishScheduled(ctx, ownerID, bookingID, result)

	return result, nil
}

// desiredItems expands the step chain into the full set of wanted (step,
// channel, recipient) tuples, fully rendered.
func (s *Scheduler) desiredItems(
	ownerID string,
	booking *models.Booking,
	calendar *models.Calendar,
	steps []*models.FollowUpStep,
	vars map[string]string,
) []*models.FollowUpQueueItem {
	var desired []*models.FollowUpQueueItem

	for _, step := range steps {
		if step == nil || !step.Enabled {
			continue
		}

		sendAt := booking.EndAt.Add(time.Duration(step.ClampedDelay()) * time.Minute)

		switch step.Audience {
		case models.AudienceInternal:
			// Internal notifications go out by email only.
			if !step.Channels.Email {
				continue
			}

			for _, recipient := range s.internalRecipients(step, calendar) {
				desired = append(desired, s.buildItem(ownerID, booking, step, models.ChannelEmail, recipient, sendAt, vars))
			}
		default:
			if step.Channels.Email && booking.ContactEmail != "" {
				desired = append(desired, s.buildItem(ownerID, booking, step, models.ChannelEmail, booking.ContactEmail, sendAt, vars))
			}

			if step.Channels.SMS && booking.ContactPhone != "" {
				desired = append(desired, s.buildItem(ownerID, booking, step, models.ChannelSMS, booking.ContactPhone, sendAt, vars))
			}
		}
	}

	return desired
}

func (s *Scheduler) internalRecipients(step *models.FollowUpStep, calendar *models.Calendar) []string {
	if len(step.InternalRecipients) > 0 {
		return step.InternalRecipients
	}

	if calendar != nil && len(calendar.NotificationEmails) > 0 {
		return calendar.NotificationEmails
	}

	return nil
}

func (s *Scheduler) buildItem(
	ownerID string,
	booking *models.Booking,
	step *models.FollowUpStep,
	channel models.Channel,
	recipient string,
	sendAt time.Time,
	vars map[string]string,
) *models.FollowUpQueueItem {
	item := &models.FollowUpQueueItem{
		ID:         uuid.New().String(),
		BookingID:  booking.ID,
		OwnerID:    ownerID,
		StepID:     step.ID,
		StepName:   step.Name,
		CalendarID: booking.CalendarID,
		Channel:    channel,
		To:         recipient,
		SendAt:     sendAt.UTC(),
		Status:     models.QueueStatusPending,
		CreatedAt:  s.now().UTC(),
	}

	if channel == models.ChannelEmail {
		item.Subject = template.Render(step.EmailSubject, vars)
		item.Body = template.Render(step.EmailBody, vars)
	} else {
		item.Body = template.Render(step.SMSBody, vars)
	}

	return item
}

// reconcile applies the desired set to the document queue: upsert desired
// tuples onto existing PENDING items by identity key, cancel undesired PENDING
// items of the same booking, trim completed history.
func (s *Scheduler) reconcile(doc *models.FollowUpDocument, bookingID string, desired []*models.FollowUpQueueItem) *ScheduleResult {
	result := &ScheduleResult{}

	pendingByKey := make(map[string]*models.FollowUpQueueItem)

	for _, item := range doc.Queue {
		if item.Status == models.QueueStatusPending {
			pendingByKey[item.IdentityKey()] = item
		}
	}

	desiredKeys := make(map[string]bool, len(desired))

	for _, want := range desired {
		key := want.IdentityKey()

		// Two configured recipients may normalize to the same key; only the
		// first tuple per key may produce a PENDING item.
		if desiredKeys[key] {
			continue
		}

		desiredKeys[key] = true

		if existing, ok := pendingByKey[key]; ok {
			// Same id, preserved attempt count; only the payload and the
			// send time move.
			existing.StepName = want.StepName
			existing.CalendarID = want.CalendarID
			existing.Subject = want.Subject
			existing.Body = want.Body
			existing.SendAt = want.SendAt
		} else {
			doc.Queue = append(doc.Queue, want)
			pendingByKey[key] = want
		}

		result.Scheduled++
	}

	for _, item := range doc.Queue {
		if item.BookingID != bookingID || item.Status != models.QueueStatusPending {
			continue
		}

		if !desiredKeys[item.IdentityKey()] {
			item.Status = models.QueueStatusCanceled
			result.Canceled++
		}
	}

	doc.Queue = trimQueue(doc.Queue)

	return result
}

// trimQueue keeps every PENDING item unconditionally and the most recent
// history up to the overall queue cap.
func trimQueue(queue []*models.FollowUpQueueItem) []*models.FollowUpQueueItem {
	if len(queue) <= models.MaxQueueItems {
		return queue
	}

	var pending, history []*models.FollowUpQueueItem

	for _, item := range queue {
		if item.Status == models.QueueStatusPending {
			pending = append(pending, item)
		} else {
			history = append(history, item)
		}
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})

	keep := models.MaxQueueItems - len(pending)
	if keep < 0 {
		keep = 0
	}

	if keep > len(history) {
		keep = len(history)
	}

	return append(pending, history[:keep]...)
}

func (s *Scheduler) buildVars(ctx context.Context, ownerID string, booking *models.Booking, calendar *models.Calendar) map[string]string {
	vars := map[string]string{
		"contact.name":      booking.ContactName,
		"contact.firstName": models.FirstName(booking.ContactName),
		"contact.email":     booking.ContactEmail,
		"contact.phone":     booking.ContactPhone,
		"booking.id":        booking.ID,
		"booking.date":      booking.StartAt.UTC().Format("2006-01-02"),
		"booking.time":      booking.StartAt.UTC().Format("15:04"),
		"booking.start":     booking.StartAt.UTC().Format(time.RFC3339),
		"booking.end":       booking.EndAt.UTC().Format(time.RFC3339),
		"booking.duration":  strconv.Itoa(int(booking.EndAt.Sub(booking.StartAt).Minutes())),
	}

	if calendar != nil {
		vars["calendar.title"] = calendar.Title
	}

	if s.directory != nil {
		profile, err := s.directory.Profile(ctx, ownerID)
		if err == nil && profile != nil {
			vars["business.name"] = profile.BusinessName
			vars["owner.email"] = profile.Email
		}
	}

	return vars
}

func (s *Scheduler) publishScheduled(ctx context.Context, ownerID, bookingID string, result *ScheduleResult) {
	if s.publisher == nil {
		return
	}

	event := events.FollowUpScheduled{
		BaseEvent: events.NewBaseEvent(events.FollowUpScheduledEvent, ownerID),
		BookingID: bookingID,
		Scheduled: result.Scheduled,
		Canceled:  result.Canceled,
		Reason:    result.Reason,
	}

	if err := s.publisher.Publish(ctx, ownerID, event); err != nil {
		s.logger.Warn("failed to publish followup.scheduled", "owner_id", ownerID, "error", err)
	}
}
