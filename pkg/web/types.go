package web

import (
	"github.com/cadenzahq/cadenza/pkg/models"
)

// IngestEventRequest is the body of POST /v1/owners/:ownerID/events.
type IngestEventRequest struct {
	Kind    string           `json:"kind" validate:"required"`
	Contact *models.Contact  `json:"contact,omitempty"`
	Message *models.Message  `json:"message,omitempty"`
	Meta    models.EventMeta `json:"meta,omitempty"`
}

// TriggerEvent converts the request into the engine's event form.
func (r *IngestEventRequest) TriggerEvent() *models.TriggerEvent {
	return &models.TriggerEvent{
		Kind:    models.TriggerKind(r.Kind),
		Contact: r.Contact,
		Message: r.Message,
		Meta:    r.Meta,
	}
}

// IngestEventResponse acknowledges an accepted event.
type IngestEventResponse struct {
	Status string `json:"status"`
	Kind   string `json:"kind"`
}

// FollowUpQueueResponse is the body of GET /v1/owners/:ownerID/followups.
type FollowUpQueueResponse struct {
	Enabled bool                        `json:"enabled"`
	Items   []*models.FollowUpQueueItem `json:"items"`
	Total   int                         `json:"total"`
}
