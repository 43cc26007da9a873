package services

import (
	"context"
	"strings"
)

// StaticLinkProvider derives tenant review and booking links from a base URL.
// Tenants without a dedicated link service get predictable per-owner paths.
type StaticLinkProvider struct {
	baseURL string
}

func NewStaticLinkProvider(baseURL string) *StaticLinkProvider {
	return &StaticLinkProvider{baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *StaticLinkProvider) ReviewLink(_ context.Context, ownerID string) (string, error) {
	return p.baseURL + "/review/" + ownerID, nil
}

func (p *StaticLinkProvider) BookingLink(_ context.Context, ownerID string) (string, error) {
	return p.baseURL + "/book/" + ownerID, nil
}
