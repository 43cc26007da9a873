// Package file provides file-based persistence for tenant documents. Each
// tenant owns a directory of JSON documents under the configured root.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

const (
	automationsFile = "automations.json"
	followUpsFile   = "followups.json"
	scheduleFile    = "schedule_state.json"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root   string
	logger *slog.Logger
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is tolerated so the backend can be selected by URL.
func NewPersistence(root string, logger *slog.Logger) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:   cleanRoot,
		logger: logger.With("module", "file_persistence"),
	}
}

// Close performs any necessary cleanup. Nothing to do for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Owners lists every tenant directory under the root.
func (p *Persistence) Owners(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	var owners []string

	for _, entry := range entries {
		if entry.IsDir() {
			owners = append(owners, entry.Name())
		}
	}

	return owners, nil
}

// Automations returns the tenant's automation graphs, dropping malformed entries.
func (p *Persistence) Automations(ctx context.Context, ownerID string) ([]*models.Automation, error) {
	data, err := p.read(ownerID, automationsFile)
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

	if err := p.write(ownerID, automationsFile, doc); err != nil {
		return persistence.NewDocumentError("SaveAutomations", ownerID, err)
	}

	return nil
}

// FollowUps returns the tenant's follow-up settings and queue.
func (p *Persistence) FollowUps(ctx context.Context, ownerID string) (*models.FollowUpDocument, error) {
	data, err := p.read(ownerID, followUpsFile)
	if err != nil {
		return nil, persistence.NewDocumentError("FollowUps", ownerID, err)
	}

	return models.DecodeFollowUpDocument(data, p.logger), nil
}

// SaveFollowUps writes the tenant's follow-up document.
func (p *Persistence) SaveFollowUps(ctx context.Context, ownerID string, doc *models.FollowUpDocument) error {
	doc.Version = models.FollowUpDocumentVersion

	if err := p.write(ownerID, followUpsFile, doc); err != nil {
		return persistence.NewDocumentError("SaveFollowUps", ownerID, err)
	}

	return nil
}

// ScheduleState returns the tenant's sweeper debounce state.
func (p *Persistence) ScheduleState(ctx context.Context, ownerID string) (*models.ScheduleDocument, error) {
	data, err := p.read(ownerID, scheduleFile)
	if err != nil {
		return nil, persistence.NewDocumentError("ScheduleState", ownerID, err)
	}

	return models.DecodeScheduleDocument(data, p.logger), nil
}

// SaveScheduleState writes the tenant's schedule document.
func (p *Persistence) SaveScheduleState(ctx context.Context, ownerID string, doc *models.ScheduleDocument) error {
	doc.Version = models.ScheduleDocumentVersion

	if err := p.write(ownerID, scheduleFile, doc); err != nil {
		return persistence.NewDocumentError("SaveScheduleState", ownerID, err)
	}

	return nil
}

func (p *Persistence) read(ownerID, name string) ([]byte, error) {
	dir, err := p.ownerDir(ownerID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	return data, nil
}

// write stores the document atomically: temp file in the owner directory, then
// rename over the target.
func (p *Persistence) write(ownerID, name string, doc any) error {
	dir, err := p.ownerDir(ownerID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create owner directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to replace document: %w", err)
	}

	return nil
}

func (p *Persistence) ownerDir(ownerID string) (string, error) {
	if ownerID == "" || ownerID == "." || ownerID == ".." ||
		strings.ContainsAny(ownerID, `/\`) {
		return "", persistence.ErrInvalidOwnerID
	}

	return filepath.Join(p.root, ownerID), nil
}
