// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOwnerID indicates an owner id that cannot name a document.
	ErrInvalidOwnerID = errors.New("invalid owner id")

	// ErrDocumentTooLarge indicates a document exceeded the backend's size cap.
	ErrDocumentTooLarge = errors.New("document too large")
)

// DocumentError wraps document-level storage errors with operation context.
type DocumentError struct {
	Op      string // Operation being performed (e.g. "FollowUps", "SaveAutomations")
	OwnerID string
	Err     error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s failed for owner %s: %v", e.Op, e.OwnerID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a document error with context.
func NewDocumentError(op, ownerID string, err error) *DocumentError {
	return &DocumentError{Op: op, OwnerID: ownerID, Err: err}
}

// IsInvalidOwnerID checks if an error indicates a malformed owner id.
func IsInvalidOwnerID(err error) bool {
	return errors.Is(err, ErrInvalidOwnerID)
}
