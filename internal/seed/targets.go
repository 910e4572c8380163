package seed

import (
	"context"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository/memory"
	"gpms-backend/internal/repository/postgres"

	"github.com/lib/pq"
)

// MemoryTarget seeds the in-process store
type MemoryTarget struct {
	Store *memory.Store
}

func (m MemoryTarget) AddUser(ctx context.Context, u domain.User) (int32, error) {
	return m.Store.AddUser(u).ID, nil
}

func (m MemoryTarget) AddUniversity(ctx context.Context, u domain.University) (int32, error) {
	return m.Store.AddUniversity(u).ID, nil
}

func (m MemoryTarget) AddCollege(ctx context.Context, c domain.College) (int32, error) {
	return m.Store.AddCollege(c).ID, nil
}

func (m MemoryTarget) AddDepartment(ctx context.Context, d domain.Department) (int32, error) {
	return m.Store.AddDepartment(d).ID, nil
}

func (m MemoryTarget) AddAffiliation(ctx context.Context, a domain.AcademicAffiliation) error {
	m.Store.AddAffiliation(a)
	return nil
}

func (m MemoryTarget) AddProject(ctx context.Context, p domain.Project) (int32, error) {
	return m.Store.AddProject(p).ID, nil
}

// SQLTarget seeds PostgreSQL; pass a *sql.Tx to make the whole fixture atomic
type SQLTarget struct {
	DB postgres.DBTX
}

func (s SQLTarget) insert(ctx context.Context, query string, args ...any) (int32, error) {
	var id int32
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}

func (s SQLTarget) AddUser(ctx context.Context, u domain.User) (int32, error) {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return s.insert(ctx, `INSERT INTO users (name, email, roles, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Name, u.Email, pq.Array(roles), u.CreatedAt)
}

func (s SQLTarget) AddUniversity(ctx context.Context, u domain.University) (int32, error) {
	return s.insert(ctx, `INSERT INTO universities (name, president_user_id) VALUES ($1, $2) RETURNING id`,
		u.Name, u.PresidentUserID)
}

func (s SQLTarget) AddCollege(ctx context.Context, c domain.College) (int32, error) {
	return s.insert(ctx, `INSERT INTO colleges (university_id, name, dean_user_id) VALUES ($1, $2, $3) RETURNING id`,
		c.UniversityID, c.Name, c.DeanUserID)
}

func (s SQLTarget) AddDepartment(ctx context.Context, d domain.Department) (int32, error) {
	return s.insert(ctx, `INSERT INTO departments (college_id, name, head_user_id) VALUES ($1, $2, $3) RETURNING id`,
		d.CollegeID, d.Name, d.HeadUserID)
}

func (s SQLTarget) AddAffiliation(ctx context.Context, a domain.AcademicAffiliation) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO academic_affiliations (user_id, university_id, college_id, department_id, start_date)
	                                 VALUES ($1, $2, $3, $4, $5)`,
		a.UserID, a.UniversityID, a.CollegeID, a.DepartmentID, a.StartDate)
	return err
}

func (s SQLTarget) AddProject(ctx context.Context, p domain.Project) (int32, error) {
	return s.insert(ctx, `INSERT INTO projects (title, project_type, college_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Title, p.Type, p.CollegeID, p.CreatedAt)
}
