package models

import (
	"strings"
	"time"
)

const (
	// MaxStepDelayMinutes caps a follow-up step delay at ten years.
	MaxStepDelayMinutes = 10 * 365 * 24 * 60

	// MaxQueueItems caps the per-tenant follow-up queue length. Pending items
	// are never trimmed; only completed history is.
	MaxQueueItems = 500
)

// Audience selects who a follow-up step messages.
type Audience string

const (
	AudienceContact  Audience = "CONTACT"
	AudienceInternal Audience = "INTERNAL"
)

// Channel is the delivery channel of one queued follow-up message.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// StepChannels flags which channels a step sends on.
type StepChannels struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// FollowUpStep is one tenant-configured delayed message template.
type FollowUpStep struct {
	ID           string       `json:"id"   validate:"required"`
	Name         string       `json:"name"`
	Enabled      bool         `json:"enabled"`
	DelayMinutes int          `json:"delay_minutes"`
	Audience     Audience     `json:"audience"`
	Channels     StepChannels `json:"channels"`

	// InternalRecipients is an explicit custom list for INTERNAL audience
	// steps; empty means the calendar/tenant notification emails are used.
	InternalRecipients []string `json:"internal_recipients,omitempty"`

	EmailSubject string `json:"email_subject,omitempty"`
	EmailBody    string `json:"email_body,omitempty"`
	SMSBody      string `json:"sms_body,omitempty"`
}

// ClampedDelay returns the step delay clamped to 0..MaxStepDelayMinutes.
func (s *FollowUpStep) ClampedDelay() int {
	if s.DelayMinutes < 0 {
		return 0
	}

	if s.DelayMinutes > MaxStepDelayMinutes {
		return MaxStepDelayMinutes
	}

	return s.DelayMinutes
}

// FollowUpSettings is the tenant follow-up configuration: a default step chain
// plus optional per-calendar overrides.
type FollowUpSettings struct {
	Enabled       bool                       `json:"enabled"`
	DefaultSteps  []*FollowUpStep            `json:"default_steps,omitempty"`
	CalendarSteps map[string][]*FollowUpStep `json:"calendar_steps,omitempty"`
}

// StepsForCalendar resolves the step chain to use for a booking: the
// calendar-specific chain when one is configured, else the default chain.
func (s *FollowUpSettings) StepsForCalendar(calendarID string) []*FollowUpStep {
	if calendarID != "" {
		if steps, ok := s.CalendarSteps[calendarID]; ok && len(steps) > 0 {
			return steps
		}
	}

	return s.DefaultSteps
}

// QueueStatus is the delivery state of one queued follow-up item.
type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "PENDING"
	QueueStatusSent     QueueStatus = "SENT"
	QueueStatusFailed   QueueStatus = "FAILED"
	QueueStatusCanceled QueueStatus = "CANCELED"
)

// FollowUpQueueItem is one fully-rendered delayed message awaiting delivery.
type FollowUpQueueItem struct {
	ID         string      `json:"id"`
	BookingID  string      `json:"booking_id"`
	OwnerID    string      `json:"owner_id"`
	StepID     string      `json:"step_id"`
	StepName   string      `json:"step_name,omitempty"`
	CalendarID string      `json:"calendar_id,omitempty"`
	Channel    Channel     `json:"channel"`
	To         string      `json:"to"`
	Subject    string      `json:"subject,omitempty"`
	Body       string      `json:"body"`
	SendAt     time.Time   `json:"send_at"`
	Status     QueueStatus `json:"status"`
	Attempts   int         `json:"attempts"`
	LastError  string      `json:"last_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	SentAt     *time.Time  `json:"sent_at,omitempty"`
}

// IdentityKey returns the reconciliation key: at most one PENDING item may
// exist per key at any time.
func (i *FollowUpQueueItem) IdentityKey() string {
	return QueueIdentityKey(i.BookingID, i.StepID, i.Channel, i.To)
}

// QueueIdentityKey builds the identity key for a desired (booking, step,
// channel, recipient) tuple.
func QueueIdentityKey(bookingID, stepID string, channel Channel, recipient string) string {
	return bookingID + "|" + stepID + "|" + string(channel) + "|" + NormalizeRecipient(channel, recipient)
}

// NormalizeRecipient canonicalizes a recipient address for identity matching:
// emails fold case, phone numbers keep digits and a leading plus only.
func NormalizeRecipient(channel Channel, recipient string) string {
	recipient = strings.TrimSpace(recipient)

	if channel == ChannelEmail {
		return strings.ToLower(recipient)
	}

	var out strings.Builder

	for i, r := range recipient {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			out.WriteRune(r)
		}
	}

	return out.String()
}
