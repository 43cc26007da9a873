package models

import (
	"encoding/json"
	"log/slog"
)

// Tenant state is persisted as one JSON document per tenant per subsystem.
// Documents are versioned and parsed defensively: unknown or malformed entries
// are dropped with a warning, never fatal, so one bad entry cannot take a
// tenant's whole configuration offline.

const (
	// AutomationDocumentVersion is the current automations document schema.
	// Version 1 stored edges as {source,target} pairs without ports.
	AutomationDocumentVersion = 2

	// FollowUpDocumentVersion is the current follow-up document schema.
	// Version 1 predates SMS support and stored items without a channel.
	FollowUpDocumentVersion = 2

	// ScheduleDocumentVersion is the current schedule-state document schema.
	ScheduleDocumentVersion = 1
)

// AutomationDocument is one tenant's automation graphs.
type AutomationDocument struct {
	Version     int           `json:"version"`
	Automations []*Automation `json:"automations"`
}

// FollowUpDocument is one tenant's follow-up settings plus message queue.
type FollowUpDocument struct {
	Version  int                  `json:"version"`
	Settings FollowUpSettings     `json:"settings"`
	Queue    []*FollowUpQueueItem `json:"queue,omitempty"`
}

// ScheduleDocument is one tenant's sweeper debounce state.
type ScheduleDocument struct {
	Version int           `json:"version"`
	State   ScheduleState `json:"state"`
}

type rawAutomationDocument struct {
	Version     int               `json:"version"`
	Automations []json.RawMessage `json:"automations"`
}

// legacyEdge is the version-1 edge encoding: no ports, source/target naming.
type legacyEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DecodeAutomationDocument parses a tenant automations document, migrating old
// versions and dropping entries that fail schema validation or the typed decode.
func DecodeAutomationDocument(data []byte, logger *slog.Logger) *AutomationDocument {
	doc := &AutomationDocument{Version: AutomationDocumentVersion}

	if len(data) == 0 {
		return doc
	}

	var raw rawAutomationDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("automation document is not valid JSON, starting empty", "error", err)

		return doc
	}

	for _, entry := range raw.Automations {
		if raw.Version <= 1 {
			migrated, err := migrateAutomationV1(entry)
			if err != nil {
				logger.Warn("dropping automation entry that failed v1 migration", "error", err)

				continue
			}

			entry = migrated
		}

		if err := ValidateAutomationJSON(entry); err != nil {
			logger.Warn("dropping automation entry that failed schema validation", "error", err)

			continue
		}

		var automation Automation
		if err := json.Unmarshal(entry, &automation); err != nil {
			logger.Warn("dropping malformed automation entry", "error", err)

			continue
		}

		doc.Automations = append(doc.Automations, &automation)
	}

	return doc
}

// migrateAutomationV1 rewrites a version-1 automation entry in place: edges
// move from {source,target} pairs to ported {from,to} edges on the out port.
func migrateAutomationV1(entry json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return nil, err
	}

	rawEdges, ok := fields["connections"]
	if !ok {
		// Already in the current shape; nothing to rewrite.
		return entry, nil
	}

	var legacy []legacyEdge
	if err := json.Unmarshal(rawEdges, &legacy); err != nil {
		return nil, err
	}

	edges := make([]*Edge, 0, len(legacy))
	for _, edge := range legacy {
		edges = append(edges, &Edge{From: edge.Source, FromPort: PortOut, To: edge.Target})
	}

	encoded, err := json.Marshal(edges)
	if err != nil {
		return nil, err
	}

	delete(fields, "connections")
	fields["edges"] = encoded

	return json.Marshal(fields)
}

// DecodeFollowUpDocument parses a tenant follow-up document, migrating old
// versions and dropping malformed queue items.
func DecodeFollowUpDocument(data []byte, logger *slog.Logger) *FollowUpDocument {
	doc := &FollowUpDocument{Version: FollowUpDocumentVersion}

	if len(data) == 0 {
		return doc
	}

	var parsed FollowUpDocument
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.Warn("follow-up document is not valid JSON, starting empty", "error", err)

		return doc
	}

	doc.Settings = parsed.Settings

	for _, item := range parsed.Queue {
		if item == nil || item.ID == "" || item.BookingID == "" {
			logger.Warn("dropping follow-up queue item without identity")

			continue
		}

		if parsed.Version <= 1 && item.Channel == "" {
			item.Channel = ChannelEmail
		}

		switch item.Status {
		case QueueStatusPending, QueueStatusSent, QueueStatusFailed, QueueStatusCanceled:
		default:
			logger.Warn("dropping follow-up queue item with unknown status",
				"item_id", item.ID, "status", item.Status)

			continue
		}

		doc.Queue = append(doc.Queue, item)
	}

	return doc
}

// DecodeScheduleDocument parses a tenant schedule-state document.
func DecodeScheduleDocument(data []byte, logger *slog.Logger) *ScheduleDocument {
	doc := &ScheduleDocument{Version: ScheduleDocumentVersion}

	if len(data) == 0 {
		return doc
	}

	if err := json.Unmarshal(data, doc); err != nil {
		logger.Warn("schedule document is not valid JSON, starting empty", "error", err)

		return &ScheduleDocument{Version: ScheduleDocumentVersion}
	}

	doc.Version = ScheduleDocumentVersion

	return doc
}
