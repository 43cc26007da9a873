package models

import "strings"

// TriggerKind identifies the business event an engine run is reacting to.
type TriggerKind string

const (
	TriggerInboundMessage    TriggerKind = "inbound_message"
	TriggerNewLead           TriggerKind = "new_lead"
	TriggerTagAdded          TriggerKind = "tag_added"
	TriggerAppointmentBooked TriggerKind = "appointment_booked"
	TriggerScheduledTime     TriggerKind = "scheduled_time"
	TriggerInboundWebhook    TriggerKind = "inbound_webhook"
	TriggerMissedAppointment TriggerKind = "missed_appointment"
	TriggerFollowUpSent      TriggerKind = "follow_up_sent"
)

// IsValid checks if the trigger kind is a known business event.
func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerInboundMessage, TriggerNewLead, TriggerTagAdded,
		TriggerAppointmentBooked, TriggerScheduledTime, TriggerInboundWebhook,
		TriggerMissedAppointment, TriggerFollowUpSent:
		return true
	default:
		return false
	}
}

// Message is the raw inbound message attached to messaging events.
type Message struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Body string `json:"body,omitempty"`
}

// EventMeta carries optional event metadata used for trigger filtering and
// contact/lead resolution.
type EventMeta struct {
	TagID         string `json:"tag_id,omitempty"`
	WebhookKey    string `json:"webhook_key,omitempty"`
	TriggerNodeID string `json:"trigger_node_id,omitempty"`
	BookingID     string `json:"booking_id,omitempty"`
	CalendarID    string `json:"calendar_id,omitempty"`
	LeadID        string `json:"lead_id,omitempty"`
}

// TriggerEvent is the ephemeral input to one engine run. It is never persisted.
type TriggerEvent struct {
	Kind    TriggerKind `json:"kind" validate:"required"`
	Message *Message    `json:"message,omitempty"`
	Contact *Contact    `json:"contact,omitempty"`
	Meta    EventMeta   `json:"meta,omitempty"`
}

// Contact is the resolved person an automation run acts on.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// HasIdentity reports whether the contact carries any field that could be used
// to find or create a contact-store record.
func (c *Contact) HasIdentity() bool {
	if c == nil {
		return false
	}

	return c.ID != "" || c.Name != "" || c.Email != "" || c.Phone != ""
}

// FirstName returns the leading word of a full name, ignoring surrounding
// whitespace. Template vars and follow-up rendering share this.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}
