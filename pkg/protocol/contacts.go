// Package protocol defines the contracts the automation core needs from its
// external collaborators. Implementations live outside the core; the engine
// only ever calls through these interfaces.
package protocol

import (
	"context"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// ContactStore looks up and mutates tenant contacts.
type ContactStore interface {
	// FindOrCreate returns the id of an existing contact matching the given
	// fields, creating one when none matches.
	FindOrCreate(ctx context.Context, ownerID, name, email, phone string) (string, error)

	// ByID returns the contact, or nil when it does not exist.
	ByID(ctx context.Context, ownerID, contactID string) (*models.Contact, error)

	// Update overwrites the non-empty fields on the contact.
	Update(ctx context.Context, ownerID, contactID string, fields models.Contact) error
}

// TagStore assigns tenant tags and finds contacts by tag.
type TagStore interface {
	AssignTag(ctx context.Context, ownerID, contactID, tagID string) error

	// ContactsByTag returns contact ids carrying the tag. FindLatest returns at
	// most one id (the most recent match); FindAll returns up to limit ids.
	ContactsByTag(ctx context.Context, ownerID, tagID string, mode models.FindMode, limit int) ([]string, error)
}

// LeadStore links leads to contacts and records lead assignment.
type LeadStore interface {
	// LinkedContact returns the contact id previously linked to the lead, or
	// empty when none is linked.
	LinkedContact(ctx context.Context, ownerID, leadID string) (string, error)

	LinkContact(ctx context.Context, ownerID, leadID, contactID string) error

	AssignLead(ctx context.Context, ownerID, leadID, userID string) error
}
