// Package mail delivers OTP messages through SMTP, Amazon SES or the log.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mealtrack/internal/config"
)

// Sender delivers a plain-text message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns the Sender selected by cfg.MailProvider.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (Sender, error) {
	switch cfg.MailProvider {
	case "smtp":
		s, err := NewSMTPSender(cfg.SMTPServer, cfg.SMTPUser, cfg.SMTPPassword)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "ses":
		s, err := NewSESSender(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "log":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}

// headerSafe strips line breaks so values cannot inject extra headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
