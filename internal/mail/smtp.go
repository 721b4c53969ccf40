package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
)

// SMTPSender sends mail with PLAIN auth through a host:port relay.
type SMTPSender struct {
	server   string
	host     string
	user     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender validates the relay settings. server must be host:port.
func NewSMTPSender(server, user, password string) (*SMTPSender, error) {
	if server == "" || user == "" || password == "" {
		return nil, errors.New("SMTP_SERVER, SMTP_USER and SMTP_PASSWORD must be set")
	}
	host, _, err := net.SplitHostPort(server)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_SERVER format (expected host:port): %w", err)
	}
	return &SMTPSender{
		server:   server,
		host:     host,
		user:     user,
		auth:     smtp.PlainAuth("", user, password, host),
		sendMail: smtp.SendMail,
	}, nil
}

// Send delivers the message. smtp.SendMail takes no context, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := []byte("From: " + s.user + "\r\n" +
		"To: " + headerSafe(to) + "\r\n" +
		"Subject: " + headerSafe(subject) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body + "\r\n")

	if err := s.sendMail(s.server, s.auth, s.user, []string{to}, msg); err != nil {
		return fmt.Errorf("sending email via %s: %w", s.host, err)
	}
	return nil
}
