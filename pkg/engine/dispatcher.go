package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/template"
)

// Collaborators bundles the external services the dispatcher calls. Any field
// may be nil; actions needing a missing collaborator are recorded as skipped.
type Collaborators struct {
	Contacts  protocol.ContactStore
	Tags      protocol.TagStore
	Leads     protocol.LeadStore
	SMS       protocol.SMSSender
	Email     protocol.EmailSender
	Webhooks  protocol.WebhookSender
	Tasks     protocol.TaskStore
	Directory protocol.TenantDirectory
	Links     protocol.LinkProvider
	Campaigns protocol.CampaignService
	Calls     protocol.OutboundCallService
	Bookings  protocol.BookingProvider
}

// OutcomeStatus classifies how one action node ended.
type OutcomeStatus string

const (
	OutcomeOK      OutcomeStatus = "ok"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// ActionOutcome records the result of one dispatched action. Failures are
// recorded here and never abort the walk.
type ActionOutcome struct {
	NodeID string            `json:"node_id"`
	Kind   models.ActionKind `json:"kind"`
	Status OutcomeStatus     `json:"status"`
	Detail string            `json:"detail,omitempty"`
}

func okOutcome(nodeID string, kind models.ActionKind) ActionOutcome {
	return ActionOutcome{NodeID: nodeID, Kind: kind, Status: OutcomeOK}
}

func failedOutcome(nodeID string, kind models.ActionKind, err error) ActionOutcome {
	return ActionOutcome{NodeID: nodeID, Kind: kind, Status: OutcomeFailed, Detail: err.Error()}
}

func skippedOutcome(nodeID string, kind models.ActionKind, reason string) ActionOutcome {
	return ActionOutcome{NodeID: nodeID, Kind: kind, Status: OutcomeSkipped, Detail: reason}
}

// Dispatcher executes action nodes against the external collaborators. Every
// branch is best-effort: a collaborator error becomes a failed outcome, never
// an error return.
type Dispatcher struct {
	collaborators Collaborators
	logger        *slog.Logger
}

func NewDispatcher(collaborators Collaborators, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		collaborators: collaborators,
		logger:        logger.With("module", "dispatcher"),
	}
}

// Dispatch runs one action node. It may mutate execCtx (find_contact,
// assign_lead, update_contact); callers rebuild the variable map afterwards.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	ownerID string,
	node *models.Node,
	config models.ActionConfig,
	execCtx *ExecutionContext,
	event *models.TriggerEvent,
	vars map[string]string,
) ActionOutcome {
	switch config.Kind {
	case models.ActionSendSMS:
		return d.sendSMS(ctx, ownerID, node, config, execCtx, vars)
	case models.ActionSendEmail:
		return d.sendEmail(ctx, ownerID, node, config, execCtx, vars)
	case models.ActionAddTag:
		return d.addTag(ctx, ownerID, node, config, execCtx)
	case models.ActionCreateTask:
		return d.createTask(ctx, ownerID, node, config, execCtx, vars)
	case models.ActionAssignLead:
		return d.assignLead(ctx, ownerID, node, config, execCtx, event)
	case models.ActionFindContact:
		return d.findContact(ctx, ownerID, node, config, execCtx, vars)
	case models.ActionUpdateContact:
		return d.updateContact(ctx, ownerID, node, config, execCtx, vars)
	case models.ActionSendWebhook:
		return d.sendWebhook(ctx, ownerID, node, config, execCtx, event, vars)
	case models.ActionSendReviewRequest:
		return d.sendLinkMessage(ctx, ownerID, node, config, execCtx, vars, reviewLink)
	case models.ActionSendBookingLink:
		return d.sendLinkMessage(ctx, ownerID, node, config, execCtx, vars, bookingLink)
	case models.ActionTriggerService:
		return d.triggerService(ctx, ownerID, node, config, execCtx)
	default:
		return skippedOutcome(node.ID, config.Kind, "unsupported action kind")
	}
}

func (d *Dispatcher) sendSMS(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, vars map[string]string) ActionOutcome {
	if d.collaborators.SMS == nil {
		return skippedOutcome(node.ID, config.Kind, "no sms sender configured")
	}

	to := d.resolveRecipient(ctx, ownerID, config, execCtx, vars, models.ChannelSMS)
	if to == "" {
		return skippedOutcome(node.ID, config.Kind, "no recipient")
	}

	body := template.Render(config.Body, vars)

	if err := d.collaborators.SMS.SendSMS(ctx, ownerID, to, body); err != nil {
		d.logger.Warn("sms send failed", "owner_id", ownerID, "node_id", node.ID, "error", err)

		return failedOutcome(node.ID, config.Kind, err)
	}

	return okOutcome(node.ID, config.Kind)
}

func (d *Dispatcher) sendEmail(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, vars map[string]string) ActionOutcome {
	if d.collaborators.Email == nil {
		return skippedOutcome(node.ID, config.Kind, "no email sender configured")
	}

	to := d.resolveRecipient(ctx, ownerID, config, execCtx, vars, models.ChannelEmail)
	if to == "" {
		return skippedOutcome(node.ID, config.Kind, "no recipient")
	}

	subject := template.Render(config.Subject, vars)
	body := template.Render(config.Body, vars)
	fromName := template.Render(config.FromName, vars)

	if err := d.collaborators.Email.SendEmail(ctx, ownerID, to, subject, body, fromName); err != nil {
		d.logger.Warn("email send failed", "owner_id", ownerID, "node_id", node.ID, "error", err)

		return failedOutcome(node.ID, config.Kind, err)
	}

	return okOutcome(node.ID, config.Kind)
}

// resolveRecipient maps the configured recipient mode to a concrete address for
// the given channel. Empty means no recipient could be resolved.
func (d *Dispatcher) resolveRecipient(
	ctx context.Context,
	ownerID string,
	config models.ActionConfig,
	execCtx *ExecutionContext,
	vars map[string]string,
	channel models.Channel,
) string {
	mode := config.RecipientMode
	if mode == "" {
		mode = models.RecipientEventContact
	}

	switch mode {
	case models.RecipientInboundSender:
		if execCtx.Message == nil {
			return ""
		}

		return execCtx.Message.From
	case models.RecipientEventContact:
		if execCtx.Contact == nil {
			return ""
		}

		if channel == models.ChannelEmail {
			return execCtx.Contact.Email
		}

		return execCtx.Contact.Phone
	case models.RecipientInternalNotification:
		if d.collaborators.Directory == nil {
			return ""
		}

		profile, err := d.collaborators.Directory.Profile(ctx, ownerID)
		if err != nil || profile == nil {
			return ""
		}

		if channel == models.ChannelEmail {
			return profile.Email
		}

		return profile.Phone
	case models.RecipientAssignedLead:
		if execCtx.AssigneeUserID == "" || channel != models.ChannelEmail || d.collaborators.Directory == nil {
			return ""
		}

		members, err := d.collaborators.Directory.Members(ctx, ownerID)
		if err != nil {
			return ""
		}

		for _, member := range members {
			if member.ID == execCtx.AssigneeUserID {
				return member.Email
			}
		}

		return ""
	case models.RecipientCustom:
		return template.Render(config.To, vars)
	default:
		return ""
	}
}

func (d *Dispatcher) addTag(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext) ActionOutcome {
	if d.collaborators.Tags == nil {
		return skippedOutcome(node.ID, config.Kind, "no tag store configured")
	}

	if execCtx.Contact == nil || execCtx.Contact.ID == "" {
		return skippedOutcome(node.ID, config.Kind, "no resolved contact")
	}

	if config.TagID == "" {
		return skippedOutcome(node.ID, config.Kind, "no tag configured")
	}

	if err := d.collaborators.Tags.AssignTag(ctx, ownerID, execCtx.Contact.ID, config.TagID); err != nil {
		return failedOutcome(node.ID, config.Kind, err)
	}

	return okOutcome(node.ID, config.Kind)
}

func (d *Dispatcher) createTask(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, vars map[string]string) ActionOutcome {
	if d.collaborators.Tasks == nil {
		return skippedOutcome(node.ID, config.Kind, "no task store configured")
	}

	title := template.Render(config.Title, vars)
	description := template.Render(config.Description, vars)

	assignees, reason := d.resolveAssignees(ctx, ownerID, config, execCtx)
	if len(assignees) == 0 {
		return skippedOutcome(node.ID, config.Kind, reason)
	}

	for _, assignee := range assignees {
		if err := d.collaborators.Tasks.CreateTask(ctx, ownerID, title, description, assignee); err != nil {
			return failedOutcome(node.ID, config.Kind, err)
		}
	}

	return okOutcome(node.ID, config.Kind)
}

// resolveAssignees returns one task assignee per resolved user. all_members
// fans out to every active member.
func (d *Dispatcher) resolveAssignees(ctx context.Context, ownerID string, config models.ActionConfig, execCtx *ExecutionContext) ([]string, string) {
	mode := config.AssigneeMode
	if mode == "" {
		mode = models.AssigneeOwner
	}

	switch mode {
	case models.AssigneeOwner:
		return []string{ownerID}, ""
	case models.AssigneeMember:
		if config.AssigneeUserID == "" {
			return nil, "no assignee configured"
		}

		return []string{config.AssigneeUserID}, ""
	case models.AssigneeAssignedLead:
		if execCtx.AssigneeUserID == "" {
			return nil, "no assigned lead"
		}

		return []string{execCtx.AssigneeUserID}, ""
	case models.AssigneeAllMembers:
		if d.collaborators.Directory == nil {
			return nil, "no tenant directory configured"
		}

		members, err := d.collaborators.Directory.Members(ctx, ownerID)
		if err != nil {
			return nil, "member lookup failed"
		}

		var assignees []string

		for _, member := range members {
			if member.Active {
				assignees = append(assignees, member.ID)
			}
		}

		if len(assignees) == 0 {
			return nil, "no active members"
		}

		return assignees, ""
	default:
		return nil, "unknown assignee mode"
	}
}

func (d *Dispatcher) assignLead(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, event *models.TriggerEvent) ActionOutcome {
	userID := config.AssigneeUserID
	if userID == "" {
		return skippedOutcome(node.ID, config.Kind, "no assignee configured")
	}

	if !d.isKnownUser(ctx, ownerID, userID) {
		return skippedOutcome(node.ID, config.Kind, "assignee is not owner or member")
	}

	execCtx.AssigneeUserID = userID

	if event.Meta.LeadID == "" {
		// Nothing to persist; the context update still helps downstream nodes.
		return okOutcome(node.ID, config.Kind)
	}

	if d.collaborators.Leads == nil {
		return skippedOutcome(node.ID, config.Kind, "no lead store configured")
	}

	if err := d.collaborators.Leads.AssignLead(ctx, ownerID, event.Meta.LeadID, userID); err != nil {
		return failedOutcome(node.ID, config.Kind, err)
	}

	return okOutcome(node.ID, config.Kind)
}

func (d *Dispatcher) isKnownUser(ctx context.Context, ownerID, userID string) bool {
	if userID == ownerID {
		return true
	}

	if d.collaborators.Directory == nil {
		return false
	}

	members, err := d.collaborators.Directory.Members(ctx, ownerID)
	if err != nil {
		return false
	}

	for _, member := range members {
		if member.ID == userID {
			return true
		}
	}

	return false
}

// findContact handles the latest-match and template-construction paths. The
// all-matches fan-out is driven by the walk, which calls FanOutContacts
// instead.
func (d *Dispatcher) findContact(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, vars map[string]string) ActionOutcome {
	if d.collaborators.Contacts == nil {
		return skippedOutcome(node.ID, config.Kind, "no contact store configured")
	}

	if config.TagID != "" {
		if d.collaborators.Tags == nil {
			return skippedOutcome(node.ID, config.Kind, "no tag store configured")
		}

		ids, err := d.collaborators.Tags.ContactsByTag(ctx, ownerID, config.TagID, models.FindLatest, 1)
		if err != nil {
			return failedOutcome(node.ID, config.Kind, err)
		}

		if len(ids) == 0 {
			return skippedOutcome(node.ID, config.Kind, "no contact matched tag")
		}

		contact, err := d.collaborators.Contacts.ByID(ctx, ownerID, ids[0])
		if err != nil || contact == nil {
			return skippedOutcome(node.ID, config.Kind, "matched contact not found")
		}

		execCtx.Contact = contact

		return okOutcome(node.ID, config.Kind)
	}

	name := template.Render(config.NameTemplate, vars)
	email := template.Render(config.EmailTemplate, vars)
	phone := template.Render(config.PhoneTemplate, vars)

	if name == "" && email == "" && phone == "" {
		return skippedOutcome(node.ID, config.Kind, "no contact fields resolved")
	}

	contactID, err := d.collaborators.Contacts.FindOrCreate(ctx, ownerID, name, email, phone)
	if err != nil {
		return failedOutcome(node.ID, config.Kind, err)
	}

	contact, err := d.collaborators.Contacts.ByID(ctx, ownerID, contactID)
	if err != nil || contact == nil {
		contact = &models.Contact{ID: contactID, Name: name, Email: email, Phone: phone}
	}

	execCtx.Contact = contact

	return okOutcome(node.ID, config.Kind)
}

// FanOutContacts returns the contacts an all-matches find_contact expands to,
// bounded by limit.
func (d *Dispatcher) FanOutContacts(ctx context.Context, ownerID string, config models.ActionConfig, limit int) ([]*models.Contact, error) {
	if d.collaborators.Tags == nil || d.collaborators.Contacts == nil || config.TagID == "" {
		return nil, nil
	}

	if config.FindLimit > 0 && config.FindLimit < limit {
		limit = config.FindLimit
	}

	ids, err := d.collaborators.Tags.ContactsByTag(ctx, ownerID, config.TagID, models.FindAll, limit)
	if err != nil {
		return nil, err
	}

	contacts := make([]*models.Contact, 0, len(ids))

	for _, id := range ids {
		contact, err := d.collaborators.Contacts.ByID(ctx, ownerID, id)
		if err != nil || contact == nil {
			continue
		}

		contacts = append(contacts, contact)
	}

	return contacts, nil
}

func (d *Dispatcher) updateContact(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, vars map[string]string) ActionOutcome {
	if d.collaborators.Contacts == nil {
		return skippedOutcome(node.ID, config.Kind, "no contact store configured")
	}

	if execCtx.Contact == nil || execCtx.Contact.ID == "" {
		return skippedOutcome(node.ID, config.Kind, "no resolved contact")
	}

	fields := models.Contact{
		Name:  template.Render(config.NameTemplate, vars),
		Email: template.Render(config.EmailTemplate, vars),
		Phone: template.Render(config.PhoneTemplate, vars),
	}

	if err := d.collaborators.Contacts.Update(ctx, ownerID, execCtx.Contact.ID, fields); err != nil {
		return failedOutcome(node.ID, config.Kind, err)
	}

	if fields.Name != "" {
		execCtx.Contact.Name = fields.Name
	}

	if fields.Email != "" {
		execCtx.Contact.Email = fields.Email
	}

	if fields.Phone != "" {
		execCtx.Contact.Phone = fields.Phone
	}

	return okOutcome(node.ID, config.Kind)
}

func (d *Dispatcher) sendWebhook(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, event *models.TriggerEvent, vars map[string]string) ActionOutcome {
	if d.collaborators.Webhooks == nil {
		return skippedOutcome(node.ID, config.Kind, "no webhook sender configured")
	}

	parsed, err := url.Parse(config.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return skippedOutcome(node.ID, config.Kind, "invalid webhook url")
	}

	payload := d.webhookPayload(ownerID, config, execCtx, event, vars)

	if err := d.collaborators.Webhooks.PostJSON(ctx, config.URL, payload); err != nil {
		return failedOutcome(node.ID, config.Kind, err)
	}

	return okOutcome(node.ID, config.Kind)
}

// webhookPayload renders the custom template when one is configured, falling
// back to the default envelope when the rendered text is not valid JSON.
func (d *Dispatcher) webhookPayload(ownerID string, config models.ActionConfig, execCtx *ExecutionContext, event *models.TriggerEvent, vars map[string]string) any {
	if config.PayloadTemplate != "" {
		rendered := template.Render(config.PayloadTemplate, vars)

		var custom map[string]any
		if err := json.Unmarshal([]byte(rendered), &custom); err == nil {
			return custom
		}

		d.logger.Warn("custom webhook payload is not valid JSON, using default envelope", "owner_id", ownerID)
	}

	return map[string]any{
		"ownerId":     ownerID,
		"triggerKind": event.Kind,
		"contact":     execCtx.Contact,
		"message":     execCtx.Message,
		"event":       event.Meta,
	}
}

type linkKind int

const (
	reviewLink linkKind = iota
	bookingLink
)

// sendLinkMessage resolves the tenant's review or booking link, exposes it to
// the body template as {link}, and delivers via SMS.
func (d *Dispatcher) sendLinkMessage(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext, vars map[string]string, kind linkKind) ActionOutcome {
	if d.collaborators.Links == nil {
		return skippedOutcome(node.ID, config.Kind, "no link provider configured")
	}

	if d.collaborators.SMS == nil {
		return skippedOutcome(node.ID, config.Kind, "no sms sender configured")
	}

	var (
		link string
		err  error
	)

	if kind == reviewLink {
		link, err = d.collaborators.Links.ReviewLink(ctx, ownerID)
	} else {
		link, err = d.collaborators.Links.BookingLink(ctx, ownerID)
	}

	if err != nil {
		return failedOutcome(node.ID, config.Kind, err)
	}

	if link == "" {
		return skippedOutcome(node.ID, config.Kind, "no link configured")
	}

	to := d.resolveRecipient(ctx, ownerID, config, execCtx, vars, models.ChannelSMS)
	if to == "" {
		return skippedOutcome(node.ID, config.Kind, "no recipient")
	}

	linkVars := make(map[string]string, len(vars)+1)
	for key, value := range vars {
		linkVars[key] = value
	}

	linkVars["link"] = link

	bodyTemplate := config.Body
	if bodyTemplate == "" {
		bodyTemplate = "{link}"
	}

	body := template.Render(bodyTemplate, linkVars)

	if err := d.collaborators.SMS.SendSMS(ctx, ownerID, to, body); err != nil {
		return failedOutcome(node.ID, config.Kind, err)
	}

	return okOutcome(node.ID, config.Kind)
}

func (d *Dispatcher) triggerService(ctx context.Context, ownerID string, node *models.Node, config models.ActionConfig, execCtx *ExecutionContext) ActionOutcome {
	if execCtx.Contact == nil || execCtx.Contact.ID == "" {
		return skippedOutcome(node.ID, config.Kind, "no resolved contact")
	}

	switch config.Service {
	case models.ServiceOutboundCalls:
		if d.collaborators.Calls == nil {
			return skippedOutcome(node.ID, config.Kind, "no outbound call service configured")
		}

		if err := d.collaborators.Calls.EnqueueCall(ctx, ownerID, execCtx.Contact.ID, config.CampaignID); err != nil {
			return failedOutcome(node.ID, config.Kind, err)
		}

		return okOutcome(node.ID, config.Kind)
	case models.ServiceNurtureCampaign:
		if d.collaborators.Campaigns == nil {
			return skippedOutcome(node.ID, config.Kind, "no campaign service configured")
		}

		if err := d.collaborators.Campaigns.Enroll(ctx, ownerID, execCtx.Contact.ID, config.CampaignID); err != nil {
			return failedOutcome(node.ID, config.Kind, err)
		}

		return okOutcome(node.ID, config.Kind)
	default:
		return skippedOutcome(node.ID, config.Kind, "unknown service")
	}
}
