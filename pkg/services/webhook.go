// Package services provides concrete implementations of the outbound
// collaborator protocols: webhook delivery, the redis hand-off queues and the
// logging message senders used in development.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultWebhookTimeout = 30 * time.Second
	webhookRetryAttempts  = 2
	webhookRetryDelay     = 500 * time.Millisecond
)

// HTTPWebhookSender posts JSON payloads to tenant-supplied URLs. Transient
// failures are retried once; the dispatcher treats any returned error as a
// failed action outcome.
type HTTPWebhookSender struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPWebhookSender(timeout time.Duration, logger *slog.Logger) *HTTPWebhookSender {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &HTTPWebhookSender{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("module", "webhook_sender"),
	}
}

func (s *HTTPWebhookSender) PostJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	var lastErr error

	for attempt := range webhookRetryAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(webhookRetryDelay):
			}
		}

		lastErr = s.post(ctx, url, body)
		if lastErr == nil {
			return nil
		}

		s.logger.Warn("webhook delivery attempt failed", "url", url, "attempt", attempt+1, "error", lastErr)
	}

	return lastErr
}

func (s *HTTPWebhookSender) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
