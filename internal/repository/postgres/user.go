package postgres

import (
	"context"
	"database/sql"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository"

	"github.com/lib/pq"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	var roles []string
	query := `SELECT id, name, email, roles, created_at FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, pq.Array(&roles), &u.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	u.Roles = toRoles(roles)
	return u, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []int32) ([]domain.User, error) {
	query := `SELECT id, name, email, roles, created_at FROM users WHERE id = ANY($1) ORDER BY id`
	logger.DatabaseCall("SELECT", "users", "count", len(ids))
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var roles []string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, pq.Array(&roles), &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Roles = toRoles(roles)
		users = append(users, u)
	}
	logger.DatabaseResult("SELECT", int64(len(users)), rows.Err())
	return users, rows.Err()
}

func (r *userRepository) LatestAffiliation(ctx context.Context, userID int32) (*domain.AcademicAffiliation, error) {
	a := &domain.AcademicAffiliation{}
	var collegeID, departmentID sql.NullInt32
	query := `SELECT id, user_id, university_id, college_id, department_id, start_date
	          FROM academic_affiliations WHERE user_id = $1
	          ORDER BY start_date DESC, id DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&a.ID, &a.UserID, &a.UniversityID, &collegeID, &departmentID, &a.StartDate)
	if err != nil {
		return nil, mapError(err)
	}
	a.CollegeID = ptrInt32(collegeID)
	a.DepartmentID = ptrInt32(departmentID)
	return a, nil
}

func toRoles(raw []string) []domain.Role {
	roles := make([]domain.Role, 0, len(raw))
	for _, r := range raw {
		roles = append(roles, domain.Role(r))
	}
	return roles
}
