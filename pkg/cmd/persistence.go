// Package cmd holds the shared wiring helpers used by every binary.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/persistence/file"
	"github.com/cadenzahq/cadenza/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend by URL scheme: postgres:// and
// postgresql:// URLs open PostgreSQL, everything else is treated as a file
// root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgresql persistence: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL, logger), nil
	}
}
