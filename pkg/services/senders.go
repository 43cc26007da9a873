package services

import (
	"context"
	"log/slog"
)

// LogSMSSender logs outbound texts instead of delivering them. Used in
// development and wherever no real SMS provider is configured.
type LogSMSSender struct {
	logger *slog.Logger
}

func NewLogSMSSender(logger *slog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger.With("module", "log_sms_sender")}
}

func (s *LogSMSSender) SendSMS(_ context.Context, ownerID, to, body string) error {
	s.logger.Info("sms", "owner_id", ownerID, "to", to, "body", body)

	return nil
}

// LogEmailSender logs outbound email instead of delivering it.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger.With("module", "log_email_sender")}
}

func (s *LogEmailSender) SendEmail(_ context.Context, ownerID, to, subject, text, fromName string) error {
	s.logger.Info("email",
		"owner_id", ownerID, "to", to, "subject", subject, "from_name", fromName, "bytes", len(text))

	return nil
}
