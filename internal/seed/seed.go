// Package seed loads reference data (universities, staff, students and
// projects) that the workflows read but never create.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"

	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Users        []User       `yaml:"users"`
	Universities []University `yaml:"universities"`
	Projects     []Project    `yaml:"projects"`
}

// People are referenced by email throughout a fixture.
type User struct {
	Name        string       `yaml:"name"`
	Email       string       `yaml:"email"`
	Roles       []string     `yaml:"roles"`
	Affiliation *Affiliation `yaml:"affiliation"`
}

type Affiliation struct {
	University string `yaml:"university"`
	College    string `yaml:"college"`
	Department string `yaml:"department"`
	Since      string `yaml:"since"` // YYYY-MM-DD
}

type University struct {
	Name      string    `yaml:"name"`
	President string    `yaml:"president"`
	Colleges  []College `yaml:"colleges"`
}

type College struct {
	Name        string       `yaml:"name"`
	Dean        string       `yaml:"dean"`
	Departments []Department `yaml:"departments"`
}

type Department struct {
	Name string `yaml:"name"`
	Head string `yaml:"head"`
}

type Project struct {
	Title   string `yaml:"title"`
	Type    string `yaml:"type"`
	College string `yaml:"college"`
}

// Target receives seeded rows and returns their assigned ids
type Target interface {
	AddUser(ctx context.Context, u domain.User) (int32, error)
	AddUniversity(ctx context.Context, u domain.University) (int32, error)
	AddCollege(ctx context.Context, c domain.College) (int32, error)
	AddDepartment(ctx context.Context, d domain.Department) (int32, error)
	AddAffiliation(ctx context.Context, a domain.AcademicAffiliation) error
	AddProject(ctx context.Context, p domain.Project) (int32, error)
}

// Result counts what Apply created
type Result struct {
	Users        int
	Universities int
	Colleges     int
	Departments  int
	Affiliations int
	Projects     int
}

// Load reads a fixture from a YAML file
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &fx, nil
}

type ids struct {
	users        map[string]int32
	universities map[string]int32
	colleges     map[string]int32
	departments  map[string]int32
}

func (x ids) user(email string) (*int32, error) {
	if email == "" {
		return nil, nil
	}
	id, ok := x.users[email]
	if !ok {
		return nil, fmt.Errorf("unknown user %q", email)
	}
	return &id, nil
}

func lookup(m map[string]int32, kind, name string) (*int32, error) {
	if name == "" {
		return nil, nil
	}
	id, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("unknown %s %q", kind, name)
	}
	return &id, nil
}

// Apply writes the fixture: users first, then the organization tree that
// names them, then affiliations and projects that point into the tree.
func Apply(ctx context.Context, fx *Fixture, t Target) (*Result, error) {
	res := &Result{}
	x := ids{
		users:        make(map[string]int32),
		universities: make(map[string]int32),
		colleges:     make(map[string]int32),
		departments:  make(map[string]int32),
	}
	now := time.Now().UTC()

	for _, u := range fx.Users {
		roles := make([]domain.Role, 0, len(u.Roles))
		for _, r := range u.Roles {
			roles = append(roles, domain.Role(r))
		}
		id, err := t.AddUser(ctx, domain.User{Name: u.Name, Email: u.Email, Roles: roles, CreatedAt: now})
		if err != nil {
			return res, fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		x.users[u.Email] = id
		res.Users++
		logger.Debug("✓ User created", "id", id, "email", u.Email, "roles", u.Roles)
	}

	for _, uni := range fx.Universities {
		president, err := x.user(uni.President)
		if err != nil {
			return res, fmt.Errorf("university %s: %w", uni.Name, err)
		}
		uniID, err := t.AddUniversity(ctx, domain.University{Name: uni.Name, PresidentUserID: president})
		if err != nil {
			return res, fmt.Errorf("failed to create university %s: %w", uni.Name, err)
		}
		x.universities[uni.Name] = uniID
		res.Universities++

		for _, col := range uni.Colleges {
			dean, err := x.user(col.Dean)
			if err != nil {
				return res, fmt.Errorf("college %s: %w", col.Name, err)
			}
			colID, err := t.AddCollege(ctx, domain.College{UniversityID: uniID, Name: col.Name, DeanUserID: dean})
			if err != nil {
				return res, fmt.Errorf("failed to create college %s: %w", col.Name, err)
			}
			x.colleges[col.Name] = colID
			res.Colleges++

			for _, dep := range col.Departments {
				head, err := x.user(dep.Head)
				if err != nil {
					return res, fmt.Errorf("department %s: %w", dep.Name, err)
				}
				depID, err := t.AddDepartment(ctx, domain.Department{CollegeID: colID, Name: dep.Name, HeadUserID: head})
				if err != nil {
					return res, fmt.Errorf("failed to create department %s: %w", dep.Name, err)
				}
				x.departments[dep.Name] = depID
				res.Departments++
			}
		}
	}

	for _, u := range fx.Users {
		if u.Affiliation == nil {
			continue
		}
		a, err := x.affiliation(x.users[u.Email], u.Affiliation)
		if err != nil {
			return res, fmt.Errorf("affiliation for %s: %w", u.Email, err)
		}
		if err := t.AddAffiliation(ctx, *a); err != nil {
			return res, fmt.Errorf("failed to create affiliation for %s: %w", u.Email, err)
		}
		res.Affiliations++
	}

	for _, p := range fx.Projects {
		college, err := lookup(x.colleges, "college", p.College)
		if err != nil {
			return res, fmt.Errorf("project %s: %w", p.Title, err)
		}
		typ := domain.ProjectType(p.Type)
		if typ == "" {
			typ = domain.ProjectTypeInternal
		}
		if _, err := t.AddProject(ctx, domain.Project{Title: p.Title, Type: typ, CollegeID: college, CreatedAt: now}); err != nil {
			return res, fmt.Errorf("failed to create project %s: %w", p.Title, err)
		}
		res.Projects++
	}

	logger.Info("Seed data applied", "users", res.Users, "universities", res.Universities,
		"colleges", res.Colleges, "departments", res.Departments, "projects", res.Projects)
	return res, nil
}

func (x ids) affiliation(userID int32, a *Affiliation) (*domain.AcademicAffiliation, error) {
	uni, err := lookup(x.universities, "university", a.University)
	if err != nil {
		return nil, err
	}
	if uni == nil {
		return nil, fmt.Errorf("university is required")
	}
	college, err := lookup(x.colleges, "college", a.College)
	if err != nil {
		return nil, err
	}
	dept, err := lookup(x.departments, "department", a.Department)
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().Truncate(24 * time.Hour)
	if a.Since != "" {
		if since, err = time.Parse("2006-01-02", a.Since); err != nil {
			return nil, fmt.Errorf("invalid since date %q: %w", a.Since, err)
		}
	}
	return &domain.AcademicAffiliation{
		UserID:       userID,
		UniversityID: *uni,
		CollegeID:    college,
		DepartmentID: dept,
		StartDate:    since,
	}, nil
}
