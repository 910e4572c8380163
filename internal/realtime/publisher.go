// Package realtime pushes notification events to connected browsers and
// mobile devices.
package realtime

import (
	"context"
	"fmt"
	"time"

	"gpms-backend/internal/domain"

	"go.uber.org/multierr"
)

// Event is the payload pushed for a stored notification
type Event struct {
	ID           string              `json:"id"`
	RecipientID  int32               `json:"recipient_id"`
	Notification domain.Notification `json:"notification"`
	SentAt       time.Time           `json:"sent_at"`
}

// Publisher delivers events to one channel. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Name() string
}

// Channel is the pub/sub channel carrying events for one user
func Channel(userID int32) string {
	return fmt.Sprintf("notifications_%d", userID)
}

// Multi fans an event out to every publisher and combines their errors.
type Multi []Publisher

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, event Event) error {
	var err error
	for _, p := range m {
		if perr := p.Publish(ctx, event); perr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", p.Name(), perr))
		}
	}
	return err
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error { return nil }
func (Nop) Name() string                                    { return "none" }
