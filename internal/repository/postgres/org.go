package postgres

import (
	"context"
	"database/sql"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository"
)

type organizationRepository struct {
	db DBTX
}

func NewOrganizationRepository(db DBTX) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) GetUniversity(ctx context.Context, id int32) (*domain.University, error) {
	u := &domain.University{}
	var president sql.NullInt32
	query := `SELECT id, name, president_user_id FROM universities WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &president); err != nil {
		return nil, mapError(err)
	}
	u.PresidentUserID = ptrInt32(president)
	return u, nil
}

func (r *organizationRepository) GetCollege(ctx context.Context, id int32) (*domain.College, error) {
	c := &domain.College{}
	var dean sql.NullInt32
	query := `SELECT id, university_id, name, dean_user_id FROM colleges WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.UniversityID, &c.Name, &dean); err != nil {
		return nil, mapError(err)
	}
	c.DeanUserID = ptrInt32(dean)
	return c, nil
}

func (r *organizationRepository) GetDepartment(ctx context.Context, id int32) (*domain.Department, error) {
	d := &domain.Department{}
	var head sql.NullInt32
	query := `SELECT id, college_id, name, head_user_id FROM departments WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.CollegeID, &d.Name, &head); err != nil {
		return nil, mapError(err)
	}
	d.HeadUserID = ptrInt32(head)
	return d, nil
}
