// Package memory is an in-process repository backend. Transactions are
// serialized through a single lock and applied to a working copy, so a
// failed transaction leaves no trace.
package memory

import (
	"context"
	"sync"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository"
)

type data struct {
	seq map[string]int32

	users         map[int32]domain.User
	affiliations  []domain.AcademicAffiliation
	universities  map[int32]domain.University
	colleges      map[int32]domain.College
	departments   map[int32]domain.Department
	projects      map[int32]domain.Project
	groups        map[int32]domain.Group
	members       []domain.GroupMember
	supervisors   []domain.GroupSupervisor
	invitations   map[int32]domain.Invitation
	requests      map[int32]domain.GroupCreationRequest
	memberAcks    map[int32]domain.GroupMemberApproval
	approvals     map[int32]domain.ApprovalRequest
	notifications map[int32]domain.Notification
}

func newData() *data {
	return &data{
		seq:           make(map[string]int32),
		users:         make(map[int32]domain.User),
		universities:  make(map[int32]domain.University),
		colleges:      make(map[int32]domain.College),
		departments:   make(map[int32]domain.Department),
		projects:      make(map[int32]domain.Project),
		groups:        make(map[int32]domain.Group),
		invitations:   make(map[int32]domain.Invitation),
		requests:      make(map[int32]domain.GroupCreationRequest),
		memberAcks:    make(map[int32]domain.GroupMemberApproval),
		approvals:     make(map[int32]domain.ApprovalRequest),
		notifications: make(map[int32]domain.Notification),
	}
}

func (d *data) next(table string) int32 {
	d.seq[table]++
	return d.seq[table]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		seq:           cloneMap(d.seq),
		users:         cloneMap(d.users),
		affiliations:  append([]domain.AcademicAffiliation(nil), d.affiliations...),
		universities:  cloneMap(d.universities),
		colleges:      cloneMap(d.colleges),
		departments:   cloneMap(d.departments),
		projects:      cloneMap(d.projects),
		groups:        cloneMap(d.groups),
		members:       append([]domain.GroupMember(nil), d.members...),
		supervisors:   append([]domain.GroupSupervisor(nil), d.supervisors...),
		invitations:   cloneMap(d.invitations),
		requests:      cloneMap(d.requests),
		memberAcks:    cloneMap(d.memberAcks),
		approvals:     cloneMap(d.approvals),
		notifications: cloneMap(d.notifications),
	}
}

type Store struct {
	mu sync.Mutex
	d  *data
}

func NewStore() *Store {
	return &Store{d: newData()}
}

// access runs fn against the committed data, or against the working copy
// when tx is set. The store lock is already held inside a transaction.
type access struct {
	s  *Store
	tx *data
}

func (a access) with(fn func(d *data)) {
	if a.tx != nil {
		fn(a.tx)
		return
	}
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	fn(a.s.d)
}

func (a access) repos() repository.Repos {
	return repository.Repos{
		Users:         &userRepository{a},
		Orgs:          &organizationRepository{a},
		Groups:        &groupRepository{a},
		Projects:      &projectRepository{a},
		Invitations:   &invitationRepository{a},
		GroupRequests: &groupRequestRepository{a},
		Approvals:     &approvalRepository{a},
		Notifications: &notificationRepository{a},
	}
}

func (s *Store) Repos() repository.Repos {
	return access{s: s}.repos()
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.d.clone()
	if err := fn(ctx, access{s: s, tx: work}.repos()); err != nil {
		return err
	}
	s.d = work
	return nil
}

// Seed helpers for reference data that the workflows only read.

func (s *Store) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.d.next("users")
	} else if u.ID > s.d.seq["users"] {
		s.d.seq["users"] = u.ID
	}
	s.d.users[u.ID] = u
	return u
}

func (s *Store) AddAffiliation(a domain.AcademicAffiliation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.d.next("affiliations")
	s.d.affiliations = append(s.d.affiliations, a)
}

func (s *Store) AddUniversity(u domain.University) domain.University {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.d.next("universities")
	s.d.universities[u.ID] = u
	return u
}

func (s *Store) AddCollege(c domain.College) domain.College {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.d.next("colleges")
	s.d.colleges[c.ID] = c
	return c
}

func (s *Store) AddDepartment(dep domain.Department) domain.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	dep.ID = s.d.next("departments")
	s.d.departments[dep.ID] = dep
	return dep
}

func (s *Store) AddProject(p domain.Project) domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.d.next("projects")
	s.d.projects[p.ID] = p
	return p
}

// Counts returns row counts used by tests and the dev health output.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"groups":        len(s.d.groups),
		"group_members": len(s.d.members),
		"supervisors":   len(s.d.supervisors),
		"invitations":   len(s.d.invitations),
		"notifications": len(s.d.notifications),
	}
}
