// Package persistence provides the storage abstraction for per-tenant
// automation graphs, follow-up documents and sweeper state.
//
// Each tenant's state is one JSON document per subsystem. Backends must parse
// defensively (malformed entries are dropped, never fatal) and reads of absent
// tenants return empty documents, not errors.
package persistence

import (
	"context"

	"github.com/cadenzahq/cadenza/pkg/models"
)

type Persistence interface {
	// Owners lists every tenant with any persisted state.
	Owners(ctx context.Context) ([]string, error)

	// Automations returns the tenant's automation graphs. The engine treats
	// the result as read-only.
	Automations(ctx context.Context, ownerID string) ([]*models.Automation, error)
	SaveAutomations(ctx context.Context, ownerID string, automations []*models.Automation) error

	// FollowUps returns the tenant's follow-up settings and queue.
	FollowUps(ctx context.Context, ownerID string) (*models.FollowUpDocument, error)
	SaveFollowUps(ctx context.Context, ownerID string, doc *models.FollowUpDocument) error

	// ScheduleState returns the tenant's sweeper debounce state.
	ScheduleState(ctx context.Context, ownerID string) (*models.ScheduleDocument, error)
	SaveScheduleState(ctx context.Context, ownerID string, doc *models.ScheduleDocument) error

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
