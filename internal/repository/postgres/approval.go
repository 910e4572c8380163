package postgres

import (
	"context"
	"database/sql"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository"

	"github.com/lib/pq"
)

const approvalColumns = `id, approval_type, group_id, project_id, requested_by_id, current_approver_id, approval_level,
	sequence_type, levels, status, comments, created_at, updated_at, approved_at`

type approvalRepository struct {
	db DBTX
}

func NewApprovalRepository(db DBTX) repository.ApprovalRepository {
	return &approvalRepository{db: db}
}

func scanApproval(row rowScanner) (*domain.ApprovalRequest, error) {
	a := &domain.ApprovalRequest{}
	var groupID, projectID sql.NullInt32
	var levels []int64
	var approvedAt sql.NullTime
	err := row.Scan(&a.ID, &a.Type, &groupID, &projectID, &a.RequestedByID, &a.CurrentApproverID, &a.Step,
		&a.SequenceType, pq.Array(&levels), &a.Status, &a.Comments, &a.CreatedAt, &a.UpdatedAt, &approvedAt)
	if err != nil {
		return nil, err
	}
	a.GroupID = ptrInt32(groupID)
	a.ProjectID = ptrInt32(projectID)
	a.Levels = make([]domain.ApproverLevel, 0, len(levels))
	for _, l := range levels {
		a.Levels = append(a.Levels, domain.ApproverLevel(l))
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		a.ApprovedAt = &t
	}
	return a, nil
}

func (r *approvalRepository) Create(ctx context.Context, a *domain.ApprovalRequest) error {
	logger.EnterMethod("approvalRepository.Create", "type", a.Type, "requestedBy", a.RequestedByID)

	levels := make([]int64, 0, len(a.Levels))
	for _, l := range a.Levels {
		levels = append(levels, int64(l))
	}
	query := `INSERT INTO approval_requests (approval_type, group_id, project_id, requested_by_id, current_approver_id,
	          approval_level, sequence_type, levels, status, comments, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	logger.DatabaseCall("INSERT", "approval_requests", "sequence", a.SequenceType)
	err := r.db.QueryRowContext(ctx, query, a.Type, nullInt32(a.GroupID), nullInt32(a.ProjectID), a.RequestedByID,
		a.CurrentApproverID, a.Step, a.SequenceType, pq.Array(levels), a.Status, a.Comments, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	logger.DatabaseResult("INSERT", 1, err, "approvalID", a.ID)

	if err != nil {
		logger.ExitMethodWithError("approvalRepository.Create", err)
		return mapError(err)
	}
	logger.ExitMethod("approvalRepository.Create", "approvalID", a.ID)
	return nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id int32) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1`
	a, err := scanApproval(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *approvalRepository) Advance(ctx context.Context, id, fromStep, nextApproverID int32, comments string, at time.Time) error {
	query := `UPDATE approval_requests
	          SET approval_level = approval_level + 1, current_approver_id = $1, comments = $2, updated_at = $3
	          WHERE id = $4 AND status = 'pending' AND approval_level = $5`
	logger.DatabaseCall("UPDATE", "approval_requests", "approvalID", id, "fromStep", fromStep)
	result, err := r.db.ExecContext(ctx, query, nextApproverID, comments, at, id, fromStep)
	err = expectOne(result, err)
	logger.DatabaseResult("UPDATE", 1, err, "approvalID", id)
	return err
}

func (r *approvalRepository) Close(ctx context.Context, id, fromStep int32, status domain.ApprovalStatus, comments string, at time.Time) error {
	var approvedAt sql.NullTime
	if status == domain.ApprovalStatusApproved {
		approvedAt = sql.NullTime{Time: at, Valid: true}
	}
	query := `UPDATE approval_requests
	          SET status = $1, comments = $2, updated_at = $3, approved_at = $4
	          WHERE id = $5 AND status = 'pending' AND approval_level = $6`
	logger.DatabaseCall("UPDATE", "approval_requests", "approvalID", id, "status", status)
	result, err := r.db.ExecContext(ctx, query, status, comments, at, approvedAt, id, fromStep)
	err = expectOne(result, err)
	logger.DatabaseResult("UPDATE", 1, err, "approvalID", id)
	return err
}

func (r *approvalRepository) list(ctx context.Context, query string, args ...any) ([]domain.ApprovalRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *approvalRepository) ListPendingByApprover(ctx context.Context, approverID int32) ([]domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests
	          WHERE status = 'pending' AND current_approver_id = $1 ORDER BY id`
	return r.list(ctx, query, approverID)
}

func (r *approvalRepository) ListPendingUpdatedBefore(ctx context.Context, cutoff time.Time) ([]domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests
	          WHERE status = 'pending' AND updated_at < $1 ORDER BY id`
	return r.list(ctx, query, cutoff)
}
