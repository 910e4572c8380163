package postgres

import (
	"context"
	"database/sql"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository"
)

type projectRepository struct {
	db DBTX
}

func NewProjectRepository(db DBTX) repository.ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) GetByID(ctx context.Context, id int32) (*domain.Project, error) {
	p := &domain.Project{}
	var groupID, collegeID sql.NullInt32
	query := `SELECT id, title, project_type, group_id, college_id, created_at FROM projects WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Type, &groupID, &collegeID, &p.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	p.GroupID = ptrInt32(groupID)
	p.CollegeID = ptrInt32(collegeID)
	return p, nil
}
