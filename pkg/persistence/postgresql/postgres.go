// Package postgresql provides PostgreSQL persistence for tenant documents.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	documentRepo *DocumentRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	documentRepo := NewDocumentRepository(database, logger)

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		documentRepo: documentRepo,
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Owners lists every tenant with any persisted document.
func (p *Persistence) Owners(ctx context.Context) ([]string, error) {
	return p.documentRepo.Owners(ctx)
}

// Automations returns the tenant's automation graphs, dropping malformed entries.
func (p *Persistence) Automations(ctx context.Context, ownerID string) ([]*models.Automation, error) {
	data, err := p.documentRepo.Get(ctx, ownerID, kindAutomations)
	if err != nil {
		return nil, persistence.NewDocumentError("Automations", ownerID, err)
	}

	return models.DecodeAutomationDocument(data, p.logger).Automations, nil
}

// SaveAutomations writes the tenant's automation document.
func (p *Persistence) SaveAutomations(ctx context.Context, ownerID string, automations []*models.Automation) error {
	doc := &models.AutomationDocument{
		Version:     models.AutomationDocumentVersion,
		Automations: automations,
	}

	err := p.documentRepo.Put(ctx, ownerID, kindAutomations, doc)
	if err != nil {
		return persistence.NewDocumentError("SaveAutomations", ownerID, err)
	}

	return nil
}

// FollowUps returns the tenant's follow-up settings and queue.
func (p *Persistence) FollowUps(ctx context.Context, ownerID string) (*models.FollowUpDocument, error) {
	data, err := p.documentRepo.Get(ctx, ownerID, kindFollowUps)
	if err != nil {
		return nil, persistence.NewDocumentError("FollowUps", ownerID, err)
	}

	return models.DecodeFollowUpDocument(data, p.logger), nil
}

// SaveFollowUps writes the tenant's follow-up document.
func (p *Persistence) SaveFollowUps(ctx context.Context, ownerID string, doc *models.FollowUpDocument) error {
	doc.Version = models.FollowUpDocumentVersion

	err := p.documentRepo.Put(ctx, ownerID, kindFollowUps, doc)
	if err != nil {
		return persistence.NewDocumentError("SaveFollowUps", ownerID, err)
	}

	return nil
}

// ScheduleState returns the tenant's sweeper debounce state.
func (p *Persistence) ScheduleState(ctx context.Context, ownerID string) (*models.ScheduleDocument, error) {
	data, err := p.documentRepo.Get(ctx, ownerID, kindScheduleState)
	if err != nil {
		return nil, persistence.NewDocumentError("ScheduleState", ownerID, err)
	}

	return models.DecodeScheduleDocument(data, p.logger), nil
}

// SaveScheduleState writes the tenant's schedule document.
func (p *Persistence) SaveScheduleState(ctx context.Context, ownerID string, doc *models.ScheduleDocument) error {
	doc.Version = models.ScheduleDocumentVersion

	err := p.documentRepo.Put(ctx, ownerID, kindScheduleState, doc)
	if err != nil {
		return persistence.NewDocumentError("SaveScheduleState", ownerID, err)
	}

	return nil
}
