package email

import (
	"context"
	"fmt"

	"gpms-backend/internal/logger"

	"github.com/resend/resend-go/v2"
)

type resendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) Sender {
	return &resendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *resendSender) Name() string { return "resend" }

func (s *resendSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("GPMS <%s>", s.from),
		To:      []string{msg.To},
		Subject: msg.Subject,
	}
	if msg.IsHTML {
		params.Html = msg.Body
	} else {
		params.Text = msg.Body
	}

	logger.ExternalServiceCall("resend", "Emails.Send", "to", msg.To)
	_, err := s.client.Emails.Send(params)
	logger.ExternalServiceResult("resend", "Emails.Send", err, "to", msg.To)
	if err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	return nil
}
