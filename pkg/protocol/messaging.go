package protocol

import "context"

// SMSSender delivers outbound text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, ownerID, to, body string) error
}

// EmailSender delivers outbound email.
type EmailSender interface {
	SendEmail(ctx context.Context, ownerID, to, subject, text, fromName string) error
}

// WebhookSender posts a JSON payload to a tenant-supplied URL.
type WebhookSender interface {
	PostJSON(ctx context.Context, url string, payload any) error
}

// TaskStore creates tasks for tenant members.
type TaskStore interface {
	CreateTask(ctx context.Context, ownerID, title, description, assigneeUserID string) error
}
