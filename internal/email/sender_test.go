package email

import (
	"context"
	"testing"

	"gpms-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{provider: "smtp", want: "smtp"},
		{provider: "SendGrid", want: "sendgrid"},
		{provider: "resend", want: "resend"},
		{provider: "none", want: "none"},
		{provider: "", want: "none"},
		{provider: "pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			s, err := NewSender(config.EmailConfig{Provider: tt.provider, From: "noreply@gpms.edu.ye"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestSenders_RejectEmptyRecipient(t *testing.T) {
	senders := []Sender{
		NewSMTPSender("localhost", 25, "", "", "noreply@gpms.edu.ye"),
		NewSendGridSender("key", "noreply@gpms.edu.ye", "GPMS"),
		NewResendSender("key", "noreply@gpms.edu.ye"),
	}
	for _, s := range senders {
		err := s.Send(context.Background(), Message{Subject: "x"})
		assert.ErrorIs(t, err, ErrNoRecipient, s.Name())
	}
}
