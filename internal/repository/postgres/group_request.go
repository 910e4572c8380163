package postgres

import (
	"context"
	"database/sql"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository"
)

const groupRequestColumns = `id, group_name, creator_id, department_id, college_id, note, status, is_fully_confirmed, group_id, created_at`

type groupRequestRepository struct {
	db DBTX
}

func NewGroupRequestRepository(db DBTX) repository.GroupRequestRepository {
	return &groupRequestRepository{db: db}
}

func scanGroupRequest(row rowScanner) (*domain.GroupCreationRequest, error) {
	req := &domain.GroupCreationRequest{}
	var groupID sql.NullInt32
	err := row.Scan(&req.ID, &req.GroupName, &req.CreatorID, &req.DepartmentID, &req.CollegeID, &req.Note,
		&req.Status, &req.IsFullyConfirmed, &groupID, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	req.GroupID = ptrInt32(groupID)
	return req, nil
}

func (r *groupRequestRepository) Create(ctx context.Context, req *domain.GroupCreationRequest) error {
	query := `INSERT INTO group_creation_requests (group_name, creator_id, department_id, college_id, note, status, is_fully_confirmed, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	logger.DatabaseCall("INSERT", "group_creation_requests", "creatorID", req.CreatorID)
	err := r.db.QueryRowContext(ctx, query, req.GroupName, req.CreatorID, req.DepartmentID, req.CollegeID, req.Note,
		req.Status, req.IsFullyConfirmed, req.CreatedAt).Scan(&req.ID)
	logger.DatabaseResult("INSERT", 1, err, "requestID", req.ID)
	return mapError(err)
}

func (r *groupRequestRepository) GetByID(ctx context.Context, id int32) (*domain.GroupCreationRequest, error) {
	query := `SELECT ` + groupRequestColumns + ` FROM group_creation_requests WHERE id = $1`
	req, err := scanGroupRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *groupRequestRepository) GetForUpdate(ctx context.Context, id int32) (*domain.GroupCreationRequest, error) {
	query := `SELECT ` + groupRequestColumns + ` FROM group_creation_requests WHERE id = $1 FOR UPDATE`
	req, err := scanGroupRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *groupRequestRepository) MarkFinalized(ctx context.Context, id, groupID int32) error {
	query := `UPDATE group_creation_requests SET is_fully_confirmed = TRUE, status = 'finalized', group_id = $1
	          WHERE id = $2 AND is_fully_confirmed = FALSE AND status = 'open'`
	result, err := r.db.ExecContext(ctx, query, groupID, id)
	return expectOne(result, err)
}

func (r *groupRequestRepository) MarkAbandoned(ctx context.Context, id int32) error {
	query := `UPDATE group_creation_requests SET status = 'abandoned' WHERE id = $1 AND status = 'open'`
	result, err := r.db.ExecContext(ctx, query, id)
	return expectOne(result, err)
}

func scanMemberApproval(row rowScanner) (*domain.GroupMemberApproval, error) {
	a := &domain.GroupMemberApproval{}
	var respondedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.RequestID, &a.UserID, &a.Role, &a.Status, &respondedAt); err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		a.RespondedAt = &t
	}
	return a, nil
}

func (r *groupRequestRepository) CreateApproval(ctx context.Context, a *domain.GroupMemberApproval) error {
	query := `INSERT INTO group_member_approvals (request_id, user_id, role, status, responded_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var respondedAt sql.NullTime
	if a.RespondedAt != nil {
		respondedAt = sql.NullTime{Time: *a.RespondedAt, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query, a.RequestID, a.UserID, a.Role, a.Status, respondedAt).Scan(&a.ID)
	return mapError(err)
}

func (r *groupRequestRepository) GetApproval(ctx context.Context, id int32) (*domain.GroupMemberApproval, error) {
	query := `SELECT id, request_id, user_id, role, status, responded_at FROM group_member_approvals WHERE id = $1`
	a, err := scanMemberApproval(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *groupRequestRepository) ListApprovals(ctx context.Context, requestID int32) ([]domain.GroupMemberApproval, error) {
	query := `SELECT id, request_id, user_id, role, status, responded_at FROM group_member_approvals WHERE request_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvals []domain.GroupMemberApproval
	for rows.Next() {
		a, err := scanMemberApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

func (r *groupRequestRepository) RespondApproval(ctx context.Context, id int32, status domain.MemberApprovalStatus, respondedAt time.Time) error {
	query := `UPDATE group_member_approvals SET status = $1, responded_at = $2 WHERE id = $3 AND status = 'pending'`
	logger.DatabaseCall("UPDATE", "group_member_approvals", "approvalID", id, "status", status)
	result, err := r.db.ExecContext(ctx, query, status, respondedAt, id)
	err = expectOne(result, err)
	logger.DatabaseResult("UPDATE", 1, err, "approvalID", id)
	return err
}
