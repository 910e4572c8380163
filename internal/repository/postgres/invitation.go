package postgres

import (
	"context"
	"database/sql"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository"
)

const invitationColumns = `id, group_id, invited_user_id, invited_by_id, status, created_at, expires_at, responded_at`

type invitationRepository struct {
	db DBTX
}

func NewInvitationRepository(db DBTX) repository.InvitationRepository {
	return &invitationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var respondedAt sql.NullTime
	if err := row.Scan(&inv.ID, &inv.GroupID, &inv.InvitedUserID, &inv.InvitedByID, &inv.Status, &inv.CreatedAt, &inv.ExpiresAt, &respondedAt); err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		inv.RespondedAt = &t
	}
	return inv, nil
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	logger.EnterMethod("invitationRepository.Create", "groupID", inv.GroupID, "invitedUserID", inv.InvitedUserID)

	query := `INSERT INTO group_invitations (group_id, invited_user_id, invited_by_id, status, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	logger.DatabaseCall("INSERT", "group_invitations", "groupID", inv.GroupID)
	err := r.db.QueryRowContext(ctx, query, inv.GroupID, inv.InvitedUserID, inv.InvitedByID, inv.Status, inv.CreatedAt, inv.ExpiresAt).Scan(&inv.ID)
	logger.DatabaseResult("INSERT", 1, err, "invitationID", inv.ID)

	if err != nil {
		logger.ExitMethodWithError("invitationRepository.Create", err)
		return mapError(err)
	}
	logger.ExitMethod("invitationRepository.Create", "invitationID", inv.ID)
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id int32) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM group_invitations WHERE id = $1`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

func (r *invitationRepository) GetByPair(ctx context.Context, groupID, userID int32) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM group_invitations WHERE group_id = $1 AND invited_user_id = $2`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, groupID, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

func (r *invitationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, *inv)
	}
	return invs, rows.Err()
}

func (r *invitationRepository) ListByUser(ctx context.Context, userID int32, status domain.InvitationStatus) ([]domain.Invitation, error) {
	if status == "" {
		query := `SELECT ` + invitationColumns + ` FROM group_invitations WHERE invited_user_id = $1 ORDER BY id`
		return r.list(ctx, query, userID)
	}
	query := `SELECT ` + invitationColumns + ` FROM group_invitations WHERE invited_user_id = $1 AND status = $2 ORDER BY id`
	return r.list(ctx, query, userID, status)
}

func (r *invitationRepository) LockByUser(ctx context.Context, userID int32) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM group_invitations WHERE invited_user_id = $1 ORDER BY id FOR UPDATE`
	return r.list(ctx, query, userID)
}

func (r *invitationRepository) Transition(ctx context.Context, id int32, from, to domain.InvitationStatus, respondedAt time.Time) error {
	query := `UPDATE group_invitations SET status = $1, responded_at = $2 WHERE id = $3 AND status = $4`
	logger.DatabaseCall("UPDATE", "group_invitations", "invitationID", id, "from", from, "to", to)
	result, err := r.db.ExecContext(ctx, query, to, respondedAt, id, from)
	err = expectOne(result, err)
	logger.DatabaseResult("UPDATE", 1, err, "invitationID", id)
	return err
}

func (r *invitationRepository) ListExpiring(ctx context.Context, from, until time.Time) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM group_invitations
	          WHERE status = 'pending' AND expires_at >= $1 AND expires_at <= $2 ORDER BY id`
	return r.list(ctx, query, from, until)
}

func (r *invitationRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM group_invitations
	          WHERE status = 'pending' AND expires_at < $1 ORDER BY id`
	return r.list(ctx, query, now)
}

func (r *invitationRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM group_invitations
	          WHERE status = 'pending' AND created_at < $1 ORDER BY id`
	return r.list(ctx, query, cutoff)
}

func (r *invitationRepository) DeleteTerminalRespondedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM group_invitations
	          WHERE status IN ('expired', 'rejected') AND responded_at < $1`
	logger.DatabaseCall("DELETE", "group_invitations", "cutoff", cutoff)
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return 0, err
	}
	n, err := result.RowsAffected()
	logger.DatabaseResult("DELETE", n, err)
	return n, err
}
