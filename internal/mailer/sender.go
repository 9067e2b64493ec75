// Package mailer delivers password-reset links. The Sender interface keeps
// the auth flow ignorant of transport: SMTP in real deployments, a log line
// in development.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/afec/formation-portal/internal/config"
)

// Sender delivers a password-reset token to a recipient.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// NewSender picks the SMTP sender when a host is configured, the log sender
// otherwise.
func NewSender(cfg config.Config) Sender {
	if cfg.SMTPHost != "" {
		return &SMTPSender{
			addr:    cfg.SMTPHost + ":" + cfg.SMTPPort,
			host:    cfg.SMTPHost,
			user:    cfg.SMTPUser,
			pass:    cfg.SMTPPass,
			from:    cfg.SMTPFrom,
			baseURL: cfg.FrontendURL,
		}
	}
	return &LogSender{baseURL: cfg.FrontendURL}
}

// LogSender writes the reset link to the server log instead of sending mail.
type LogSender struct {
	baseURL string
}

func (s *LogSender) SendPasswordReset(_ context.Context, to, token string) error {
	log.Printf("mailer: password reset for %s link=%s", to, resetLink(s.baseURL, token))
	return nil
}

// SMTPSender sends the reset link over plain SMTP, authenticating when
// credentials are configured.
type SMTPSender struct {
	addr    string
	host    string
	user    string
	pass    string
	from    string
	baseURL string
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, to, token string) error {
	link := resetLink(s.baseURL, token)
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: Password reset",
		"",
		"You requested a password reset.",
		"Open this link to choose a new password:",
		link,
		"",
		"If you did not request this change, ignore this message.",
		"",
	}, "\r\n")

	var a smtp.Auth
	if s.user != "" {
		a = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	return smtp.SendMail(s.addr, a, s.from, []string{to}, []byte(msg))
}

func resetLink(baseURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(baseURL, "/"), token)
}
