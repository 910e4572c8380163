package realtime

import (
	"context"
	"fmt"
	"strconv"

	"gpms-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMPublisher sends a push notification to the recipient's device topic.
type FCMPublisher struct {
	client messagingClient
}

// NewFCMPublisher initialises the Firebase app from a service account file.
func NewFCMPublisher(ctx context.Context, credentialsFile string) (*FCMPublisher, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return &FCMPublisher{client: client}, nil
}

func (p *FCMPublisher) Name() string { return "fcm" }

// Topic is the device topic a user's app subscribes to
func Topic(userID int32) string {
	return "user_" + strconv.Itoa(int(userID))
}

func (p *FCMPublisher) Publish(ctx context.Context, event Event) error {
	n := event.Notification
	data := map[string]string{
		"event_id":        event.ID,
		"notification_id": strconv.Itoa(int(n.ID)),
		"type":            string(n.Type),
	}
	if !n.Related.IsZero() {
		data["related_kind"] = string(n.Related.Kind)
		data["related_id"] = strconv.Itoa(int(n.Related.ID))
	}

	msg := &messaging.Message{
		Topic: Topic(event.RecipientID),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
	}

	logger.ExternalServiceCall("fcm", "Send", "topic", msg.Topic)
	_, err := p.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "Send", err, "topic", msg.Topic)
	return err
}
