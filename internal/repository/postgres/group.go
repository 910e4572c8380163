package postgres

import (
	"context"
	"database/sql"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository"
)

type groupRepository struct {
	db DBTX
}

func NewGroupRepository(db DBTX) repository.GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, g *domain.Group) error {
	query := `INSERT INTO groups (name, department_id, college_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	logger.DatabaseCall("INSERT", "groups", "name", g.Name)
	err := r.db.QueryRowContext(ctx, query, g.Name, nullInt32(g.DepartmentID), nullInt32(g.CollegeID), g.CreatedAt).Scan(&g.ID)
	logger.DatabaseResult("INSERT", 1, err, "groupID", g.ID)
	return mapError(err)
}

func (r *groupRepository) GetByID(ctx context.Context, id int32) (*domain.Group, error) {
	g := &domain.Group{}
	var dept, college sql.NullInt32
	query := `SELECT id, name, department_id, college_id, created_at FROM groups WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &dept, &college, &g.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	g.DepartmentID = ptrInt32(dept)
	g.CollegeID = ptrInt32(college)
	return g, nil
}

func (r *groupRepository) AddMember(ctx context.Context, m *domain.GroupMember) error {
	query := `INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)
	          ON CONFLICT (group_id, user_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, m.GroupID, m.UserID, m.JoinedAt)
	return mapError(err)
}

func (r *groupRepository) AddSupervisor(ctx context.Context, s *domain.GroupSupervisor) error {
	query := `INSERT INTO group_supervisors (group_id, user_id, supervisor_type) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, s.GroupID, s.UserID, s.Type).Scan(&s.ID)
	return mapError(err)
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID int32) ([]domain.GroupMember, error) {
	query := `SELECT group_id, user_id, joined_at FROM group_members WHERE group_id = $1 ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *groupRepository) ListSupervisors(ctx context.Context, groupID int32) ([]domain.GroupSupervisor, error) {
	query := `SELECT id, group_id, user_id, supervisor_type FROM group_supervisors WHERE group_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sups []domain.GroupSupervisor
	for rows.Next() {
		var s domain.GroupSupervisor
		if err := rows.Scan(&s.ID, &s.GroupID, &s.UserID, &s.Type); err != nil {
			return nil, err
		}
		sups = append(sups, s)
	}
	return sups, rows.Err()
}
