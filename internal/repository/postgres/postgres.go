package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.OrganizationRepository
	repository.GroupRepository
	repository.ProjectRepository
	repository.InvitationRepository
	repository.GroupRequestRepository
	repository.ApprovalRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		OrganizationRepository: NewOrganizationRepository(db),
		GroupRepository:        NewGroupRepository(db),
		ProjectRepository:      NewProjectRepository(db),
		InvitationRepository:   NewInvitationRepository(db),
		GroupRequestRepository: NewGroupRequestRepository(db),
		ApprovalRepository:     NewApprovalRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Users:         s.UserRepository,
		Orgs:          s.OrganizationRepository,
		Groups:        s.GroupRepository,
		Projects:      s.ProjectRepository,
		Invitations:   s.InvitationRepository,
		GroupRequests: s.GroupRequestRepository,
		Approvals:     s.ApprovalRepository,
		Notifications: s.NotificationRepository,
	}
}

func txRepos(tx *sql.Tx) repository.Repos {
	return repository.Repos{
		Users:         NewUserRepository(tx),
		Orgs:          NewOrganizationRepository(tx),
		Groups:        NewGroupRepository(tx),
		Projects:      NewProjectRepository(tx),
		Invitations:   NewInvitationRepository(tx),
		GroupRequests: NewGroupRequestRepository(tx),
		Approvals:     NewApprovalRepository(tx),
		Notifications: &notificationRepository{db: tx, savepoints: true},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, txRepos(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Failed to roll back transaction", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// expectOne turns a zero-row compare-and-set update into ErrConflict.
func expectOne(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrConflict
	}
	return nil
}

func nullInt32(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}

func ptrInt32(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	out := v.Int32
	return &out
}
