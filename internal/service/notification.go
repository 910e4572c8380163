package service

import (
	"context"
	"fmt"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/email"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/metrics"
	"gpms-backend/internal/realtime"
	"gpms-backend/internal/repository"

	"github.com/google/uuid"
)

// EmailQueue is the async channel notifications are mailed through.
type EmailQueue interface {
	Enqueue(msg email.Message, onSent func(ctx context.Context)) (string, error)
}

// Dispatcher stores notifications and hands them to email and realtime
// delivery. Stores happen inside the caller's transaction; delivery runs
// after commit through an outbox so a rollback never leaks a message.
type Dispatcher struct {
	store     repository.Store
	emails    EmailQueue
	publisher realtime.Publisher
	now       func() time.Time
}

func NewDispatcher(store repository.Store, emails EmailQueue, publisher realtime.Publisher, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Dispatcher{
		store:     store,
		emails:    emails,
		publisher: publisher,
		now:       o.now,
	}
}

type note struct {
	recipientID int32
	kind        domain.NotificationType
	title       string
	message     string
	related     domain.RelatedEntity
}

// outbox collects notifications stored in a transaction for delivery after commit.
type outbox []*domain.Notification

// record stores n using the transaction's repositories. Failures are logged
// and swallowed.
func (d *Dispatcher) record(ctx context.Context, r repository.Repos, out *outbox, n note) *domain.Notification {
	rec := &domain.Notification{
		RecipientID: n.recipientID,
		Type:        n.kind,
		Title:       n.title,
		Message:     n.message,
		Related:     n.related,
		CreatedAt:   d.now(),
	}
	if err := r.Notifications.Create(ctx, rec); err != nil {
		metrics.NotificationsDispatched.WithLabelValues(string(n.kind), "failed").Inc()
		dispatchErr := wrapError(KindDispatchFailure, "Dispatcher.record", "failed to store notification", err)
		logger.ErrorContext(ctx, "Notification dispatch failed", "recipientID", n.recipientID, "type", n.kind, "error", dispatchErr)
		return nil
	}
	metrics.NotificationsDispatched.WithLabelValues(string(n.kind), "stored").Inc()
	if out != nil {
		*out = append(*out, rec)
	}
	return rec
}

// flush delivers every committed notification in out.
func (d *Dispatcher) flush(ctx context.Context, out outbox) {
	for _, n := range out {
		d.deliver(ctx, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *domain.Notification) {
	event := realtime.Event{
		ID:           uuid.NewString(),
		RecipientID:  n.RecipientID,
		Notification: *n,
		SentAt:       d.now(),
	}
	if err := d.publisher.Publish(ctx, event); err != nil {
		metrics.Deliveries.WithLabelValues("realtime", "failed").Inc()
		logger.ErrorContext(ctx, "Realtime delivery failed", "notificationID", n.ID, "publisher", d.publisher.Name(), "error", err)
	} else {
		metrics.Deliveries.WithLabelValues("realtime", "sent").Inc()
	}

	if d.emails == nil {
		metrics.Deliveries.WithLabelValues("email", "skipped").Inc()
		return
	}
	user, err := d.store.Repos().Users.GetByID(ctx, n.RecipientID)
	if err != nil || user.Email == "" {
		metrics.Deliveries.WithLabelValues("email", "skipped").Inc()
		logger.WarnContext(ctx, "No email address for notification recipient", "notificationID", n.ID, "recipientID", n.RecipientID, "error", err)
		return
	}

	id := n.ID
	msg := email.Message{
		To:      user.Email,
		Subject: n.Title,
		Body:    fmt.Sprintf("Hello %s,\n\n%s\n\nGraduation Projects Management System", user.Name, n.Message),
	}
	if _, err := d.emails.Enqueue(msg, func(ctx context.Context) {
		if err := d.store.Repos().Notifications.MarkEmailSent(ctx, id); err != nil {
			logger.Error("Failed to flag notification email as sent", "notificationID", id, "error", err)
		}
	}); err != nil {
		metrics.Deliveries.WithLabelValues("email", "failed").Inc()
		logger.ErrorContext(ctx, "Failed to queue notification email", "notificationID", n.ID, "error", err)
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, recipientID int32, t domain.NotificationType, title, message string, related domain.RelatedEntity) *domain.Notification {
	rec := d.record(ctx, d.store.Repos(), nil, note{
		recipientID: recipientID,
		kind:        t,
		title:       title,
		message:     message,
		related:     related,
	})
	if rec != nil {
		d.deliver(ctx, rec)
	}
	return rec
}

func (d *Dispatcher) List(ctx context.Context, userID int32, unreadOnly bool, limit int32) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notes, err := d.store.Repos().Notifications.List(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fromRepo("Dispatcher.List", "notifications", err)
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	return notes, nil
}

func (d *Dispatcher) ListUnreadByType(ctx context.Context, userID int32, t domain.NotificationType) ([]domain.Notification, error) {
	notes, err := d.store.Repos().Notifications.ListUnreadByType(ctx, userID, t)
	if err != nil {
		return nil, fromRepo("Dispatcher.ListUnreadByType", "notifications", err)
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	return notes, nil
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID int32) (int64, error) {
	n, err := d.store.Repos().Notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fromRepo("Dispatcher.UnreadCount", "notifications", err)
	}
	return n, nil
}

func (d *Dispatcher) Stats(ctx context.Context, userID int32) (*domain.NotificationStats, error) {
	stats, err := d.store.Repos().Notifications.Stats(ctx, userID)
	if err != nil {
		return nil, fromRepo("Dispatcher.Stats", "notifications", err)
	}
	return stats, nil
}

// MarkRead returns false when the notification does not exist or belongs to someone else.
func (d *Dispatcher) MarkRead(ctx context.Context, id, userID int32) (bool, error) {
	ok, err := d.store.Repos().Notifications.MarkAsRead(ctx, id, userID, d.now())
	if err != nil {
		return false, fromRepo("Dispatcher.MarkRead", "notification", err)
	}
	return ok, nil
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID int32) (int64, error) {
	n, err := d.store.Repos().Notifications.MarkAllAsRead(ctx, userID, d.now())
	if err != nil {
		return 0, fromRepo("Dispatcher.MarkAllRead", "notifications", err)
	}
	return n, nil
}

func (d *Dispatcher) Delete(ctx context.Context, id, userID int32) (bool, error) {
	ok, err := d.store.Repos().Notifications.Delete(ctx, id, userID)
	if err != nil {
		return false, fromRepo("Dispatcher.Delete", "notification", err)
	}
	return ok, nil
}

func (d *Dispatcher) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, newError(KindValidation, "Dispatcher.PurgeOlderThan", "retention must be at least one day")
	}
	cutoff := d.now().AddDate(0, 0, -days)
	n, err := d.store.Repos().Notifications.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fromRepo("Dispatcher.PurgeOlderThan", "notifications", err)
	}
	logger.Info("Purged old notifications", "cutoff", cutoff, "deleted", n)
	return n, nil
}
