package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cadenzahq/cadenza/pkg/condition"
)

var (
	// ErrUnknownNodeType indicates a node carried a type outside the known set.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrInvalidNodeConfig indicates a node config did not match its node type.
	ErrInvalidNodeConfig = errors.New("invalid node config")
)

// ActionKind identifies the side effect an action node performs.
type ActionKind string

const (
	ActionSendSMS           ActionKind = "send_sms"
	ActionSendEmail         ActionKind = "send_email"
	ActionAddTag            ActionKind = "add_tag"
	ActionCreateTask        ActionKind = "create_task"
	ActionAssignLead        ActionKind = "assign_lead"
	ActionFindContact       ActionKind = "find_contact"
	ActionUpdateContact     ActionKind = "update_contact"
	ActionSendWebhook       ActionKind = "send_webhook"
	ActionSendReviewRequest ActionKind = "send_review_request"
	ActionSendBookingLink   ActionKind = "send_booking_link"
	ActionTriggerService    ActionKind = "trigger_service"
)

// IsValid checks if the action kind is supported by the dispatcher.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionSendSMS, ActionSendEmail, ActionAddTag, ActionCreateTask,
		ActionAssignLead, ActionFindContact, ActionUpdateContact,
		ActionSendWebhook, ActionSendReviewRequest, ActionSendBookingLink,
		ActionTriggerService:
		return true
	default:
		return false
	}
}

// RecipientMode selects how a message action resolves its recipient.
type RecipientMode string

const (
	RecipientInboundSender        RecipientMode = "inbound_sender"
	RecipientEventContact         RecipientMode = "event_contact"
	RecipientInternalNotification RecipientMode = "internal_notification"
	RecipientAssignedLead         RecipientMode = "assigned_lead"
	RecipientCustom               RecipientMode = "custom"
)

// FindMode selects how find_contact treats multiple tag matches.
type FindMode string

const (
	FindLatest FindMode = "latest"
	FindAll    FindMode = "all"
)

// AssigneeMode selects who a create_task action assigns the task to.
type AssigneeMode string

const (
	AssigneeOwner        AssigneeMode = "owner"
	AssigneeMember       AssigneeMode = "member"
	AssigneeAssignedLead AssigneeMode = "assigned_lead"
	AssigneeAllMembers   AssigneeMode = "all_members"
)

// ServiceName identifies an internal service a trigger_service action hands off to.
type ServiceName string

const (
	ServiceOutboundCalls   ServiceName = "ai-outbound-calls"
	ServiceNurtureCampaign ServiceName = "nurture-campaigns"
)

// NodeConfig is the closed set of per-type node configurations. Exactly one
// variant exists per NodeType; unknown types are rejected when the document is
// parsed, not at run time.
type NodeConfig interface {
	NodeType() NodeType
}

// TriggerConfig configures a graph entry point.
type TriggerConfig struct {
	Kind TriggerKind `json:"kind" validate:"required"`

	// TagID filters tag_added events; empty matches any tag.
	TagID string `json:"tag_id,omitempty"`

	// WebhookKey filters inbound_webhook events.
	WebhookKey string `json:"webhook_key,omitempty"`

	// IntervalMinutes drives scheduled_time triggers via the scheduled sweeper.
	IntervalMinutes int `json:"interval_minutes,omitempty"`
}

func (TriggerConfig) NodeType() NodeType { return NodeTypeTrigger }

// ActionConfig configures a side-effecting node. Only the fields relevant to
// Kind are set; the rest stay zero.
type ActionConfig struct {
	Kind ActionKind `json:"kind" validate:"required"`

	// Messaging (send_sms, send_email, send_review_request, send_booking_link).
	RecipientMode RecipientMode `json:"recipient_mode,omitempty"`
	To            string        `json:"to,omitempty"` // template, recipient_mode=custom
	Subject       string        `json:"subject,omitempty"`
	Body          string        `json:"body,omitempty"`
	FromName      string        `json:"from_name,omitempty"`

	// Tags and contact lookup (add_tag, find_contact).
	TagID     string   `json:"tag_id,omitempty"`
	FindMode  FindMode `json:"find_mode,omitempty"`
	FindLimit int      `json:"find_limit,omitempty"`

	// Contact field templates (find_contact, update_contact).
	NameTemplate  string `json:"name_template,omitempty"`
	EmailTemplate string `json:"email_template,omitempty"`
	PhoneTemplate string `json:"phone_template,omitempty"`

	// Tasks (create_task) and lead assignment (assign_lead).
	Title          string       `json:"title,omitempty"`
	Description    string       `json:"description,omitempty"`
	AssigneeMode   AssigneeMode `json:"assignee_mode,omitempty"`
	AssigneeUserID string       `json:"assignee_user_id,omitempty"`

	// Webhooks (send_webhook).
	URL             string `json:"url,omitempty"`
	PayloadTemplate string `json:"payload_template,omitempty"`

	// Internal service hand-off (trigger_service).
	Service    ServiceName `json:"service,omitempty"`
	CampaignID string      `json:"campaign_id,omitempty"`
}

func (ActionConfig) NodeType() NodeType { return NodeTypeAction }

// DelayConfig annotates a delay node. Delay nodes are informational in the
// synchronous walk and never suspend execution; true delayed delivery lives in
// the follow-up scheduler.
type DelayConfig struct {
	Minutes int `json:"minutes"`
}

func (DelayConfig) NodeType() NodeType { return NodeTypeDelay }

// ConditionConfig configures a two-port branch node.
type ConditionConfig struct {
	Left  string             `json:"left"`
	Op    condition.Operator `json:"op" validate:"required"`
	Right string             `json:"right"`
}

func (ConditionConfig) NodeType() NodeType { return NodeTypeCondition }

// NoteConfig is a non-executable annotation.
type NoteConfig struct {
	Text string `json:"text,omitempty"`
}

func (NoteConfig) NodeType() NodeType { return NodeTypeNote }

// Node is one vertex of an automation graph: a type plus the matching config
// variant.
type Node struct {
	ID     string     `json:"id"   validate:"required"`
	Type   NodeType   `json:"type" validate:"required"`
	Name   string     `json:"name,omitempty"`
	Config NodeConfig `json:"config"`
}

type nodeEnvelope struct {
	ID     string          `json:"id"`
	Type   NodeType        `json:"type"`
	Name   string          `json:"name,omitempty"`
	Config json.RawMessage `json:"config"`
}

// UnmarshalJSON decodes the node envelope and dispatches the config on the node
// type. Unknown types and mismatched configs fail here so malformed entries can
// be dropped at document load instead of surprising the walk.
func (n *Node) UnmarshalJSON(data []byte) error {
	var envelope nodeEnvelope

	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	n.ID = envelope.ID
	n.Type = envelope.Type
	n.Name = envelope.Name

	raw := envelope.Config
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	switch envelope.Type {
	case NodeTypeTrigger:
		config := TriggerConfig{}
		if err := json.Unmarshal(raw, &config); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidNodeConfig, envelope.ID, err)
		}

		if !config.Kind.IsValid() {
			return fmt.Errorf("%w: node %s: trigger kind %q", ErrInvalidNodeConfig, envelope.ID, config.Kind)
		}

		n.Config = config
	case NodeTypeAction:
		config := ActionConfig{}
		if err := json.Unmarshal(raw, &config); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidNodeConfig, envelope.ID, err)
		}

		if !config.Kind.IsValid() {
			return fmt.Errorf("%w: node %s: action kind %q", ErrInvalidNodeConfig, envelope.ID, config.Kind)
		}

		n.Config = config
	case NodeTypeDelay:
		config := DelayConfig{}
		if err := json.Unmarshal(raw, &config); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidNodeConfig, envelope.ID, err)
		}

		n.Config = config
	case NodeTypeCondition:
		config := ConditionConfig{}
		if err := json.Unmarshal(raw, &config); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidNodeConfig, envelope.ID, err)
		}

		if !config.Op.IsValid() {
			return fmt.Errorf("%w: node %s: operator %q", ErrInvalidNodeConfig, envelope.ID, config.Op)
		}

		n.Config = config
	case NodeTypeNote:
		config := NoteConfig{}
		if err := json.Unmarshal(raw, &config); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidNodeConfig, envelope.ID, err)
		}

		n.Config = config
	default:
		return fmt.Errorf("%w: node %s: %q", ErrUnknownNodeType, envelope.ID, envelope.Type)
	}

	return nil
}

// MarshalJSON writes the node back in envelope form.
func (n Node) MarshalJSON() ([]byte, error) {
	config, err := json.Marshal(n.Config)
	if err != nil {
		return nil, err
	}

	return json.Marshal(nodeEnvelope{
		ID:     n.ID,
		Type:   n.Type,
		Name:   n.Name,
		Config: config,
	})
}

// TriggerConfigOf returns the trigger config when the node is a trigger.
func (n *Node) TriggerConfigOf() (TriggerConfig, bool) {
	config, ok := n.Config.(TriggerConfig)

	return config, ok
}

// ActionConfigOf returns the action config when the node is an action.
func (n *Node) ActionConfigOf() (ActionConfig, bool) {
	config, ok := n.Config.(ActionConfig)

	return config, ok
}

// ConditionConfigOf returns the condition config when the node is a condition.
func (n *Node) ConditionConfigOf() (ConditionConfig, bool) {
	config, ok := n.Config.(ConditionConfig)

	return config, ok
}
