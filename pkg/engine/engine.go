// Package engine interprets tenant automation graphs in response to business
// events.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/otelhelper"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// Engine runs automations for trigger events. Runs are fire-and-continue: a
// structural failure in one automation never affects its siblings.
type Engine struct {
	persistence persistence.Persistence
	dispatcher  *Dispatcher
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewEngine creates an engine. publisher and tracer may be nil; lifecycle
// events and spans are then skipped.
func NewEngine(
	store persistence.Persistence,
	collaborators Collaborators,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		persistence: store,
		dispatcher:  NewDispatcher(collaborators, logger),
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger.With("module", "engine"),
	}
}

// RunAll loads the tenant's automations and runs each against the event.
// Automations run concurrently with each other; each automation's own walk is
// strictly sequential.
func (e *Engine) RunAll(ctx context.Context, ownerID string, event *models.TriggerEvent) error {
	automations, err := e.persistence.Automations(ctx, ownerID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	for _, automation := range automations {
		wg.Add(1)

		go func(automation *models.Automation) {
			defer wg.Done()

			e.Run(ctx, ownerID, automation, event)
		}(automation)
	}

	wg.Wait()

	return nil
}

// Run executes one automation for one event and returns the per-trigger walk
// results. No trigger match returns nil.
func (e *Engine) Run(ctx context.Context, ownerID string, automation *models.Automation, event *models.TriggerEvent) []*WalkResult {
	triggers := e.matchingTriggers(automation, event)
	if len(triggers) == 0 {
		return nil
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.run",
			attribute.String(otelhelper.OwnerIDKey, ownerID),
			attribute.String(otelhelper.AutomationIDKey, automation.ID),
			attribute.String(otelhelper.TriggerKindKey, string(event.Kind)),
		)
		defer span.End()
	}

	execCtx := e.resolveContext(ctx, ownerID, event)
	builder := newVarsBuilder(ctx, ownerID, event, e.dispatcher.collaborators.Directory)

	results := make([]*WalkResult, 0, len(triggers))

	for _, trigger := range triggers {
		e.publish(ctx, ownerID, events.AutomationTriggered{
			BaseEvent:     events.NewBaseEvent(events.AutomationTriggeredEvent, ownerID),
			AutomationID:  automation.ID,
			TriggerNodeID: trigger.ID,
			TriggerKind:   event.Kind,
		})

		state := &walkState{reason: ReasonCompleted}

		// Each trigger node starts an independent walk on its own context
		// copy so sibling walks cannot observe each other's mutations.
		e.walk(ctx, ownerID, automation, trigger.ID, execCtx.Clone(), event, builder, state, make(map[string]int), 0)

		result := &WalkResult{
			TriggerNodeID: trigger.ID,
			Reason:        state.reason,
			Steps:         state.steps,
			Outcomes:      state.outcomes,
		}
		results = append(results, result)

		if result.Reason != ReasonCompleted {
			e.logger.Warn("automation walk ended abnormally",
				"owner_id", ownerID,
				"automation_id", automation.ID,
				"trigger_node_id", trigger.ID,
				"reason", result.Reason,
				"steps", result.Steps)
		}

		e.publish(ctx, ownerID, events.AutomationCompleted{
			BaseEvent:    events.NewBaseEvent(events.AutomationCompletedEvent, ownerID),
			AutomationID: automation.ID,
			Reason:       string(result.Reason),
			Steps:        result.Steps,
			Actions:      len(result.Outcomes),
			Failures:     result.Failures(),
		})
	}

	return results
}

// matchingTriggers selects trigger nodes matching the event kind and its
// filters. An event carrying a trigger node id matches only that node.
func (e *Engine) matchingTriggers(automation *models.Automation, event *models.TriggerEvent) []*models.Node {
	var matched []*models.Node

	for _, node := range automation.TriggerNodes() {
		config, ok := node.TriggerConfigOf()
		if !ok || config.Kind != event.Kind {
			continue
		}

		if event.Meta.TriggerNodeID != "" && node.ID != event.Meta.TriggerNodeID {
			continue
		}

		if event.Kind == models.TriggerTagAdded && config.TagID != "" && config.TagID != event.Meta.TagID {
			continue
		}

		if event.Kind == models.TriggerInboundWebhook && config.WebhookKey != "" && config.WebhookKey != event.Meta.WebhookKey {
			continue
		}

		matched = append(matched, node)
	}

	return matched
}

// resolveContext resolves the run's contact once: event identity first, then a
// previously linked lead contact. A newly resolved contact is linked back to
// the lead, best-effort.
func (e *Engine) resolveContext(ctx context.Context, ownerID string, event *models.TriggerEvent) *ExecutionContext {
	execCtx := &ExecutionContext{Message: event.Message}

	contacts := e.dispatcher.collaborators.Contacts
	leads := e.dispatcher.collaborators.Leads

	if event.Contact.HasIdentity() {
		contact := e.resolveEventContact(ctx, ownerID, event.Contact)
		execCtx.Contact = contact

		if event.Meta.LeadID != "" && leads != nil && contact.ID != "" {
			if err := leads.LinkContact(ctx, ownerID, event.Meta.LeadID, contact.ID); err != nil {
				e.logger.Warn("failed to link lead to contact",
					"owner_id", ownerID, "lead_id", event.Meta.LeadID, "error", err)
			}
		}

		return execCtx
	}

	if event.Meta.LeadID != "" && leads != nil && contacts != nil {
		contactID, err := leads.LinkedContact(ctx, ownerID, event.Meta.LeadID)
		if err != nil || contactID == "" {
			return execCtx
		}

		contact, err := contacts.ByID(ctx, ownerID, contactID)
		if err == nil && contact != nil {
			execCtx.Contact = contact
		}
	}

	return execCtx
}

// resolveEventContact always yields a usable contact: when no store is wired
// or the lookup fails, the event-supplied fields carry the run.
func (e *Engine) resolveEventContact(ctx context.Context, ownerID string, eventContact *models.Contact) *models.Contact {
	contacts := e.dispatcher.collaborators.Contacts

	if contacts == nil {
		fallback := *eventContact

		return &fallback
	}

	if eventContact.ID != "" {
		contact, err := contacts.ByID(ctx, ownerID, eventContact.ID)
		if err == nil && contact != nil {
			return contact
		}

		fallback := *eventContact

		return &fallback
	}

	contactID, err := contacts.FindOrCreate(ctx, ownerID, eventContact.Name, eventContact.Email, eventContact.Phone)
	if err != nil {
		e.logger.Warn("failed to resolve event contact", "owner_id", ownerID, "error", err)

		fallback := *eventContact

		return &fallback
	}

	contact, err := contacts.ByID(ctx, ownerID, contactID)
	if err != nil || contact == nil {
		resolved := *eventContact
		resolved.ID = contactID

		return &resolved
	}

	return contact
}

// HandleFollowUpSent turns a delivered follow-up into a follow_up_sent trigger
// event. Wired to the event bus by SubscribeFollowUpSent.
func (e *Engine) HandleFollowUpSent(ctx context.Context, event interface{}) error {
	sent, ok := event.(*events.FollowUpSent)
	if !ok {
		return nil
	}

	trigger := &models.TriggerEvent{
		Kind: models.TriggerFollowUpSent,
		Meta: models.EventMeta{BookingID: sent.BookingID},
	}

	if err := e.RunAll(ctx, sent.OwnerID, trigger); err != nil {
		e.logger.Warn("follow_up_sent run failed", "owner_id", sent.OwnerID, "error", err)
	}

	return nil
}

// SubscribeFollowUpSent registers the follow_up_sent re-entry handler.
func (e *Engine) SubscribeFollowUpSent(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.FollowUpSentEvent, e.HandleFollowUpSent)
}

func (e *Engine) publish(ctx context.Context, ownerID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, ownerID, event); err != nil {
		e.logger.Warn("failed to publish event", "owner_id", ownerID, "event_type", event.GetType(), "error", err)
	}
}
