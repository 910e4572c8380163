// Package email delivers notification emails through SMTP, SendGrid or
// Resend, optionally behind an async worker queue.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gpms-backend/internal/config"
)

var ErrNoRecipient = errors.New("email has no recipient")

// Message is a single outgoing email
type Message struct {
	To      string
	Subject string
	Body    string
	IsHTML  bool
}

// Sender is implemented by every email backend
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// NewSender builds the sender selected by cfg.Provider
func NewSender(cfg config.EmailConfig) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		return NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.From), nil
	case "sendgrid":
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.From, "GPMS"), nil
	case "resend":
		return NewResendSender(cfg.ResendAPIKey, cfg.From), nil
	case "none", "":
		return NopSender{}, nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
}

// NopSender drops every message. Used when email delivery is disabled.
type NopSender struct{}

func (NopSender) Send(ctx context.Context, msg Message) error { return nil }
func (NopSender) Name() string                                 { return "none" }
