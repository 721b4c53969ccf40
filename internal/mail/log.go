package mail

import (
	"context"
	"log/slog"
)

// LogSender records that a message would have been sent instead of delivering
// it. Meant for local development; the body is never logged because it
// carries one-time codes.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender returns a LogSender writing to log.
func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the recipient and subject and always succeeds.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.log.InfoContext(ctx, "email not delivered (log provider)", "to", to, "subject", subject, "body_bytes", len(body))
	return nil
}
