package protocol

import "context"

// OwnerProfile is the tenant-level identity used in template variables and
// internal notifications.
type OwnerProfile struct {
	Email        string
	Phone        string
	BusinessName string
}

// Member is one user account belonging to a tenant.
type Member struct {
	ID     string
	Email  string
	Active bool
}

// TenantDirectory resolves tenant owners, members and custom template variables.
type TenantDirectory interface {
	Profile(ctx context.Context, ownerID string) (*OwnerProfile, error)

	Members(ctx context.Context, ownerID string) ([]Member, error)

	// CustomVariables returns tenant-defined template variables merged into
	// every engine variable map.
	CustomVariables(ctx context.Context, ownerID string) (map[string]string, error)
}

// LinkProvider resolves the tenant's primary review and booking links.
type LinkProvider interface {
	ReviewLink(ctx context.Context, ownerID string) (string, error)
	BookingLink(ctx context.Context, ownerID string) (string, error)
}
