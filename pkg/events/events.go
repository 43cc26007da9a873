// Package events defines event types for automation and follow-up lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/cadenzahq/cadenza/pkg/models"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "cadenza.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Automation lifecycle events.
	AutomationTriggeredEvent EventType = "automation.triggered"
	AutomationCompletedEvent EventType = "automation.completed"

	// Follow-up lifecycle events.
	FollowUpScheduledEvent EventType = "followup.scheduled"
	FollowUpSentEvent      EventType = "followup.sent"

	// Sweeper lifecycle events.
	SweepCompletedEvent EventType = "sweep.completed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	OwnerID   string         `json:"owner_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, ownerID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		OwnerID:   ownerID,
		Metadata:  make(map[string]any),
	}
}

// AutomationTriggered is published when a trigger event matched an automation
// and a walk is about to start.
type AutomationTriggered struct {
	BaseEvent

	AutomationID  string             `json:"automation_id"`
	TriggerNodeID string             `json:"trigger_node_id"`
	TriggerKind   models.TriggerKind `json:"trigger_kind"`
}

func (e AutomationTriggered) GetType() EventType {
	return AutomationTriggeredEvent
}

// AutomationCompleted is published when a walk finishes, whatever the reason.
type AutomationCompleted struct {
	BaseEvent

	AutomationID string `json:"automation_id"`
	Reason       string `json:"reason"`
	Steps        int    `json:"steps"`
	Actions      int    `json:"actions"`
	Failures     int    `json:"failures"`
}

func (e AutomationCompleted) GetType() EventType {
	return AutomationCompletedEvent
}

// FollowUpScheduled is published after the follow-up queue for a booking was
// reconciled.
type FollowUpScheduled struct {
	BaseEvent

	BookingID string `json:"booking_id"`
	Scheduled int    `json:"scheduled"`
	Canceled  int    `json:"canceled"`
	Reason    string `json:"reason,omitempty"`
}

func (e FollowUpScheduled) GetType() EventType {
	return FollowUpScheduledEvent
}

// FollowUpSent is published when the due sweeper delivered a queued message.
// The engine consumes it to run follow_up_sent triggered automations.
type FollowUpSent struct {
	BaseEvent

	ItemID    string         `json:"item_id"`
	BookingID string         `json:"booking_id"`
	StepID    string         `json:"step_id"`
	StepName  string         `json:"step_name,omitempty"`
	Channel   models.Channel `json:"channel"`
	To        string         `json:"to"`
}

func (e FollowUpSent) GetType() EventType {
	return FollowUpSentEvent
}

// SweepCompleted is published after a sweep pass over all tenants.
type SweepCompleted struct {
	BaseEvent

	Sweep     string `json:"sweep"`
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

func (e SweepCompleted) GetType() EventType {
	return SweepCompletedEvent
}
