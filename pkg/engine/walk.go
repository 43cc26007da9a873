package engine

import (
	"context"

	"github.com/cadenzahq/cadenza/pkg/condition"
	"github.com/cadenzahq/cadenza/pkg/models"
)

const (
	// MaxWalkSteps bounds the total transitions of one walk, fan-out included.
	MaxWalkSteps = 120

	// MaxNodeVisits bounds how often one node id may recur within a walk.
	MaxNodeVisits = 5

	// MaxFanOutContacts bounds the sub-walks an all-matches find_contact spawns.
	MaxFanOutContacts = 50
)

// WalkReason states why a walk ended.
type WalkReason string

const (
	ReasonCompleted      WalkReason = "completed"
	ReasonBudgetExceeded WalkReason = "budget_exceeded"
	ReasonNodeMissing    WalkReason = "node_missing"
)

// WalkResult is the observable outcome of one graph walk.
type WalkResult struct {
	TriggerNodeID string
	Reason        WalkReason
	Steps         int
	Outcomes      []ActionOutcome
}

// Failures counts failed action outcomes.
func (r *WalkResult) Failures() int {
	var failures int

	for _, outcome := range r.Outcomes {
		if outcome.Status == OutcomeFailed {
			failures = failures + 1
		}
	}

	return failures
}

// walkState is shared across a walk and its fan-out sub-walks so the step
// budget and outcome list are global to the run. Visit counters are per walk:
// each fan-out sub-walk gets a fresh map, otherwise the sub-walks would spend
// each other's node visits.
type walkState struct {
	steps    int
	outcomes []ActionOutcome
	reason   WalkReason
}

// walk interprets the graph from startID until a terminal node, a missing node
// or an exhausted budget. visits counts node recurrence within this walk only;
// depth is the fan-out recursion depth and fan-out is only allowed at depth 0.
func (e *Engine) walk(
	ctx context.Context,
	ownerID string,
	automation *models.Automation,
	startID string,
	execCtx *ExecutionContext,
	event *models.TriggerEvent,
	builder *varsBuilder,
	state *walkState,
	visits map[string]int,
	depth int,
) {
	current := startID
	vars := builder.Build(execCtx)

	for current != "" {
		state.steps++
		if state.steps > MaxWalkSteps {
			state.reason = ReasonBudgetExceeded

			return
		}

		visits[current]++
		if visits[current] > MaxNodeVisits {
			state.reason = ReasonBudgetExceeded

			return
		}

		node := automation.NodeByID(current)
		if node == nil {
			state.reason = ReasonNodeMissing

			return
		}

		port := models.PortOut

		switch node.Type {
		case models.NodeTypeCondition:
			config, ok := node.ConditionConfigOf()
			if !ok {
				state.reason = ReasonNodeMissing

				return
			}

			if condition.Evaluate(config.Left, config.Op, config.Right, vars) {
				port = models.PortTrue
			} else {
				port = models.PortFalse
			}
		case models.NodeTypeAction:
			config, ok := node.ActionConfigOf()
			if !ok {
				state.reason = ReasonNodeMissing

				return
			}

			if config.Kind == models.ActionFindContact && config.FindMode == models.FindAll && depth == 0 {
				e.fanOut(ctx, ownerID, automation, node, config, execCtx, event, builder, state)

				return
			}

			outcome := e.dispatcher.Dispatch(ctx, ownerID, node, config, execCtx, event, vars)
			state.outcomes = append(state.outcomes, outcome)

			if mutatesContext(config.Kind) {
				vars = builder.Build(execCtx)
			}
		case models.NodeTypeTrigger, models.NodeTypeDelay, models.NodeTypeNote:
			// Pass-through. Delay nodes never suspend the synchronous walk;
			// true delayed delivery lives in the follow-up scheduler.
		}

		edge := automation.EdgeFrom(current, port)
		if edge == nil {
			return
		}

		current = edge.To
	}
}

// fanOut runs one sub-walk per matched contact on a cloned context, then ends
// the outer branch. Matching deeper than one level is not allowed.
func (e *Engine) fanOut(
	ctx context.Context,
	ownerID string,
	automation *models.Automation,
	node *models.Node,
	config models.ActionConfig,
	execCtx *ExecutionContext,
	event *models.TriggerEvent,
	builder *varsBuilder,
	state *walkState,
) {
	contacts, err := e.dispatcher.FanOutContacts(ctx, ownerID, config, MaxFanOutContacts)
	if err != nil {
		state.outcomes = append(state.outcomes, failedOutcome(node.ID, config.Kind, err))

		return
	}

	if len(contacts) == 0 {
		state.outcomes = append(state.outcomes, skippedOutcome(node.ID, config.Kind, "no contact matched tag"))

		return
	}

	state.outcomes = append(state.outcomes, okOutcome(node.ID, config.Kind))

	edge := automation.EdgeFrom(node.ID, models.PortOut)
	if edge == nil {
		return
	}

	for _, contact := range contacts {
		if state.reason != ReasonCompleted {
			return
		}

		subCtx := execCtx.Clone()
		subCtx.Contact = contact

		e.walk(ctx, ownerID, automation, edge.To, subCtx, event, builder, state, make(map[string]int), 1)
	}
}

// mutatesContext reports whether the action kind may change the execution
// context, requiring a variable map rebuild.
func mutatesContext(kind models.ActionKind) bool {
	switch kind {
	case models.ActionFindContact, models.ActionUpdateContact, models.ActionAssignLead:
		return true
	default:
		return false
	}
}
