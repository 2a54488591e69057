// Package mailer delivers finished reports over SMTP. The email node treats
// it as an opaque send(report, recipient) function whose outcome is always a
// value: configuration gaps and transport failures come back as an
// unsuccessful EmailResult, never as a raised error.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/propchat-core/server/internal/agent/model"
	logx "github.com/propchat-core/server/pkg/logger"
)

// SMTP sends plain-text report emails through a single SMTP relay.
type SMTP struct {
	host     string
	port     int
	sender   string
	password string
	subject  string
}

func NewSMTP(cfg model.EmailConfig) *SMTP {
	subject := cfg.Subject
	if subject == "" {
		subject = "Real Estate Report"
	}
	return &SMTP{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		sender:   cfg.Sender,
		password: cfg.Password,
		subject:  subject,
	}
}

// Send delivers the report to recipient. At most one delivery attempt is made
// per call.
func (m *SMTP) Send(ctx context.Context, report, recipient string) model.EmailResult {
	if recipient == "" {
		return model.EmailResult{OK: false, Message: "Email failed: no recipient address available."}
	}
	if m.sender == "" || m.password == "" || m.host == "" {
		return model.EmailResult{
			OK:        false,
			Message:   "Email configuration not set. Please configure EMAIL_SENDER and EMAIL_PASSWORD.",
			Recipient: recipient,
		}
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.sender, recipient, m.subject, report,
	)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.sender, m.password, m.host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.sender, []string{recipient}, []byte(msg))
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		logx.Error().Err(err).Str("recipient", recipient).Msg("report email delivery failed")
		return model.EmailResult{OK: false, Message: fmt.Sprintf("Email failed: %v", err), Recipient: recipient}
	}

	logx.Info().Str("recipient", recipient).Msg("report email delivered")
	return model.EmailResult{
		OK:        true,
		Message:   fmt.Sprintf("Report emailed to %s.", recipient),
		Recipient: recipient,
	}
}

var _ model.EmailSender = (*SMTP)(nil)
