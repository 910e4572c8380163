package postgres

import (
	"context"
	"database/sql"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository"
)

const notificationColumns = `id, recipient_id, notification_type, title, message, related_kind, related_id,
	is_read, is_sent_email, created_at, read_at`

type notificationRepository struct {
	db DBTX
	// savepoints isolates each insert inside a surrounding transaction so a
	// failed insert does not abort the workflow change around it.
	savepoints bool
}

func NewNotificationRepository(db DBTX) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func relatedArgs(rel domain.RelatedEntity) (sql.NullString, sql.NullInt32) {
	if rel.IsZero() {
		return sql.NullString{}, sql.NullInt32{}
	}
	return sql.NullString{String: string(rel.Kind), Valid: true}, sql.NullInt32{Int32: rel.ID, Valid: true}
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	var kind sql.NullString
	var relatedID sql.NullInt32
	var readAt sql.NullTime
	err := row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &kind, &relatedID,
		&n.IsRead, &n.IsSentEmail, &n.CreatedAt, &readAt)
	if err != nil {
		return nil, err
	}
	if kind.Valid {
		n.Related = domain.RelatedEntity{Kind: domain.RelatedKind(kind.String), ID: relatedID.Int32}
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "recipientID", n.RecipientID, "type", n.Type, "title", n.Title)

	if r.savepoints {
		if _, err := r.db.ExecContext(ctx, `SAVEPOINT notification_insert`); err != nil {
			logger.ExitMethodWithError("notificationRepository.Create", err, "reason", "failed to create savepoint")
			return err
		}
	}

	kind, relatedID := relatedArgs(n.Related)
	query := `INSERT INTO notification_logs (recipient_id, notification_type, title, message, related_kind, related_id, is_read, is_sent_email, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, $7) RETURNING id`
	logger.DatabaseCall("INSERT", "notification_logs", "recipientID", n.RecipientID)
	err := r.db.QueryRowContext(ctx, query, n.RecipientID, n.Type, n.Title, n.Message, kind, relatedID, n.CreatedAt).Scan(&n.ID)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if r.savepoints {
		if err != nil {
			if _, rbErr := r.db.ExecContext(ctx, `ROLLBACK TO SAVEPOINT notification_insert`); rbErr != nil {
				logger.Error("Failed to roll back notification savepoint", "error", rbErr)
			}
		} else if _, relErr := r.db.ExecContext(ctx, `RELEASE SAVEPOINT notification_insert`); relErr != nil {
			err = relErr
		}
	}

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "recipientID", n.RecipientID)
		return mapError(err)
	}
	logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	return nil
}

func (r *notificationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func (r *notificationRepository) List(ctx context.Context, userID int32, unreadOnly bool, limit int32) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_logs
	          WHERE recipient_id = $1 AND ($2 = FALSE OR is_read = FALSE)
	          ORDER BY created_at DESC, id DESC LIMIT $3`
	return r.list(ctx, query, userID, unreadOnly, limit)
}

func (r *notificationRepository) ListUnreadByType(ctx context.Context, userID int32, t domain.NotificationType) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_logs
	          WHERE recipient_id = $1 AND is_read = FALSE AND notification_type = $2
	          ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, userID, t)
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID int32) (int64, error) {
	var count int64
	query := `SELECT count(*) FROM notification_logs WHERE recipient_id = $1 AND is_read = FALSE`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

func (r *notificationRepository) Stats(ctx context.Context, userID int32) (*domain.NotificationStats, error) {
	query := `SELECT notification_type, count(*), count(*) FILTER (WHERE is_read = FALSE)
	          FROM notification_logs WHERE recipient_id = $1 GROUP BY notification_type`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.NotificationStats{UnreadByType: make(map[domain.NotificationType]int64)}
	for rows.Next() {
		var t domain.NotificationType
		var total, unread int64
		if err := rows.Scan(&t, &total, &unread); err != nil {
			return nil, err
		}
		stats.Total += total
		stats.Unread += unread
		if unread > 0 {
			stats.UnreadByType[t] = unread
		}
	}
	return stats, rows.Err()
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID int32, at time.Time) (bool, error) {
	query := `UPDATE notification_logs SET is_read = TRUE, read_at = COALESCE(read_at, $1)
	          WHERE id = $2 AND recipient_id = $3`
	result, err := r.db.ExecContext(ctx, query, at, id, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int32, at time.Time) (int64, error) {
	query := `UPDATE notification_logs SET is_read = TRUE, read_at = $1 WHERE recipient_id = $2 AND is_read = FALSE`
	logger.DatabaseCall("UPDATE", "notification_logs", "recipientID", userID)
	result, err := r.db.ExecContext(ctx, query, at, userID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return 0, err
	}
	n, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	return n, err
}

func (r *notificationRepository) MarkEmailSent(ctx context.Context, id int32) error {
	query := `UPDATE notification_logs SET is_sent_email = TRUE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err := expectOne(result, err); err != nil {
		if err == repository.ErrConflict {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID int32) (bool, error) {
	query := `DELETE FROM notification_logs WHERE id = $1 AND recipient_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *notificationRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notification_logs WHERE created_at < $1`
	logger.DatabaseCall("DELETE", "notification_logs", "cutoff", cutoff)
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return 0, err
	}
	n, err := result.RowsAffected()
	logger.DatabaseResult("DELETE", n, err)
	return n, err
}

func (r *notificationRepository) ExistsSince(ctx context.Context, recipientID int32, t domain.NotificationType, related domain.RelatedEntity, since time.Time) (bool, error) {
	kind, relatedID := relatedArgs(related)
	query := `SELECT EXISTS (
	            SELECT 1 FROM notification_logs
	            WHERE recipient_id = $1 AND notification_type = $2
	              AND related_kind IS NOT DISTINCT FROM $3 AND related_id IS NOT DISTINCT FROM $4
	              AND created_at >= $5)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, recipientID, t, kind, relatedID, since).Scan(&exists)
	return exists, err
}
