package engine

import "github.com/cadenzahq/cadenza/pkg/models"

// ExecutionContext is the engine-local mutable state of one run. It lives for
// the duration of a single walk (plus its fan-out sub-walks) and is never
// persisted.
type ExecutionContext struct {
	// Contact is the person this run acts on. Nil when the event carried no
	// identity and no linked lead contact exists.
	Contact *models.Contact

	// AssigneeUserID is set by assign_lead and read by later action nodes.
	AssigneeUserID string

	// Message is the raw inbound message, immutable across the run.
	Message *models.Message
}

// Clone returns a copy whose contact can be swapped without touching the
// original. Fan-out sub-walks run on clones so the outer context survives.
func (c *ExecutionContext) Clone() *ExecutionContext {
	clone := &ExecutionContext{
		AssigneeUserID: c.AssigneeUserID,
		Message:        c.Message,
	}

	if c.Contact != nil {
		contact := *c.Contact
		clone.Contact = &contact
	}

	return clone
}
