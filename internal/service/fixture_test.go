package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"gpms-backend/internal/config"
	"gpms-backend/internal/domain"
	"gpms-backend/internal/realtime"
	"gpms-backend/internal/repository/memory"
	"gpms-backend/internal/service"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(ctx context.Context, e realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// world is a small university with one of each role.
type world struct {
	university domain.University
	college    domain.College
	college2   domain.College
	dept       domain.Department
	dept2      domain.Department
	dept3      domain.Department

	students   []domain.User
	supervisor domain.User
	cosup      domain.User
	head       domain.User
	dean       domain.User
	president  domain.User
	manager    domain.User
	company    domain.User
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	clock     *fakeClock
	publisher *recordingPublisher
	notes     *service.Dispatcher
	checker   service.Checker

	invitations service.InvitationService
	groups      service.GroupRequestService
	approvals   service.ApprovalService
	sweep       service.SweepService

	w world
}

func defaultWorkflow() config.WorkflowConfig {
	return config.WorkflowConfig{
		InvitationTTLHours: 48,
		MaxStudents:        5,
		MaxSupervisors:     3,
		MaxCoSupervisors:   2,
		ApprovalSequences:  config.DefaultApprovalSequences(),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	withClock := service.WithClock(clock.Now)

	notes := service.NewDispatcher(store, nil, pub, withClock)
	checker := service.NewRoleChecker(store.Repos().Users)

	f := &fixture{
		ctx:         context.Background(),
		store:       store,
		clock:       clock,
		publisher:   pub,
		notes:       notes,
		checker:     checker,
		invitations: service.NewInvitationService(store, notes, checker, 48*time.Hour, withClock),
		groups:      service.NewGroupRequestService(store, notes, checker, defaultWorkflow(), withClock),
		approvals:   service.NewApprovalService(store, notes, checker, config.DefaultApprovalSequences(), withClock),
		sweep:       service.NewSweepService(store, notes, config.SweepConfig{}, withClock),
	}
	f.seed()
	return f
}

func (f *fixture) user(name string, roles ...domain.Role) domain.User {
	return f.store.AddUser(domain.User{Name: name, Email: name + "@gpms.edu.ye", Roles: roles, CreatedAt: f.clock.Now()})
}

func (f *fixture) affiliate(u domain.User, dept domain.Department) {
	deptID, collegeID := dept.ID, dept.CollegeID
	f.store.AddAffiliation(domain.AcademicAffiliation{
		UserID:       u.ID,
		UniversityID: f.w.university.ID,
		CollegeID:    &collegeID,
		DepartmentID: &deptID,
		StartDate:    f.clock.Now().AddDate(-1, 0, 0),
	})
}

func (f *fixture) seed() {
	w := &f.w
	w.president = f.user("president", domain.RoleUniversityPresident)
	w.dean = f.user("dean", domain.RoleDean)
	w.head = f.user("head", domain.RoleDepartmentHead)
	w.supervisor = f.user("supervisor", domain.RoleSupervisor)
	w.cosup = f.user("cosup", domain.RoleCoSupervisor)
	w.manager = f.user("manager", domain.RoleSystemManager)
	w.company = f.user("company", domain.RoleExternalCompany)
	head2 := f.user("head2", domain.RoleDepartmentHead)
	dean2 := f.user("dean2", domain.RoleDean)
	head3 := f.user("head3", domain.RoleDepartmentHead)

	w.university = f.store.AddUniversity(domain.University{Name: "Sana'a University", PresidentUserID: &w.president.ID})
	w.college = f.store.AddCollege(domain.College{UniversityID: w.university.ID, Name: "Engineering", DeanUserID: &w.dean.ID})
	w.college2 = f.store.AddCollege(domain.College{UniversityID: w.university.ID, Name: "Science", DeanUserID: &dean2.ID})
	w.dept = f.store.AddDepartment(domain.Department{CollegeID: w.college.ID, Name: "Computer Engineering", HeadUserID: &w.head.ID})
	w.dept2 = f.store.AddDepartment(domain.Department{CollegeID: w.college.ID, Name: "Electrical Engineering", HeadUserID: &head2.ID})
	w.dept3 = f.store.AddDepartment(domain.Department{CollegeID: w.college2.ID, Name: "Physics", HeadUserID: &head3.ID})

	for _, name := range []string{"amal", "badr", "salem", "huda", "omar", "rana"} {
		s := f.user(name, domain.RoleStudent)
		f.affiliate(s, w.dept)
		w.students = append(w.students, s)
	}
	f.affiliate(w.supervisor, w.dept)
	f.affiliate(w.head, w.dept)
}

func (f *fixture) student(i int) int32 { return f.w.students[i].ID }

// group creates a group in the main department with the given supervisor.
func (f *fixture) group(t *testing.T, name string, supervisorID int32, memberIDs ...int32) domain.Group {
	t.Helper()
	deptID, collegeID := f.w.dept.ID, f.w.college.ID
	g := &domain.Group{Name: name, DepartmentID: &deptID, CollegeID: &collegeID, CreatedAt: f.clock.Now()}
	repos := f.store.Repos()
	require.NoError(t, repos.Groups.Create(f.ctx, g))
	if supervisorID != 0 {
		require.NoError(t, repos.Groups.AddSupervisor(f.ctx, &domain.GroupSupervisor{GroupID: g.ID, UserID: supervisorID, Type: domain.SupervisorTypePrimary}))
	}
	for _, id := range memberIDs {
		require.NoError(t, repos.Groups.AddMember(f.ctx, &domain.GroupMember{GroupID: g.ID, UserID: id, JoinedAt: f.clock.Now()}))
	}
	return *g
}

func (f *fixture) inbox(t *testing.T, userID int32, kind domain.NotificationType) []domain.Notification {
	t.Helper()
	notes, err := f.notes.ListUnreadByType(f.ctx, userID, kind)
	require.NoError(t, err)
	return notes
}
