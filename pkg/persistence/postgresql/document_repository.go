package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	kindAutomations   = "automations"
	kindFollowUps     = "followups"
	kindScheduleState = "schedule_state"
)

// DocumentRepository handles per-tenant JSON document rows.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sql.DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

// Owners returns every tenant that has at least one document row.
func (r *DocumentRepository) Owners(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT
			owner_id
		FROM tenant_documents
		ORDER BY owner_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}

	defer func(ctx context.Context, r *DocumentRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	owners := make([]string, 0)

	for rows.Next() {
		var owner string

		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}

		owners = append(owners, owner)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}

// Get returns the raw JSON body for the owner's document of the given kind.
// Absent rows return nil bytes, not an error.
func (r *DocumentRepository) Get(ctx context.Context, ownerID, kind string) ([]byte, error) {
	query := `
		SELECT
			body
		FROM tenant_documents
		WHERE owner_id = $1 AND kind = $2
	`

	var body []byte

	err := r.db.QueryRowContext(ctx, query, ownerID, kind).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query %s document: %w", kind, err)
	}

	return body, nil
}

// Put upserts the owner's document of the given kind.
func (r *DocumentRepository) Put(ctx context.Context, ownerID, kind string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", kind, err)
	}

	query := `
		INSERT INTO tenant_documents (owner_id, kind, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (owner_id, kind)
		DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, ownerID, kind, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert %s document: %w", kind, err)
	}

	return nil
}
