package memory

import (
	"context"
	"sort"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository"
)

type userRepository struct{ access }

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	var out *domain.User
	r.with(func(d *data) {
		if u, ok := d.users[id]; ok {
			out = &u
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []int32) ([]domain.User, error) {
	var out []domain.User
	r.with(func(d *data) {
		for _, id := range ids {
			if u, ok := d.users[id]; ok {
				out = append(out, u)
			}
		}
	})
	return out, nil
}

func (r *userRepository) LatestAffiliation(ctx context.Context, userID int32) (*domain.AcademicAffiliation, error) {
	var out *domain.AcademicAffiliation
	r.with(func(d *data) {
		for i := range d.affiliations {
			a := d.affiliations[i]
			if a.UserID != userID {
				continue
			}
			if out == nil || a.StartDate.After(out.StartDate) {
				out = &a
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

type organizationRepository struct{ access }

func (r *organizationRepository) GetUniversity(ctx context.Context, id int32) (*domain.University, error) {
	var out *domain.University
	r.with(func(d *data) {
		if u, ok := d.universities[id]; ok {
			out = &u
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *organizationRepository) GetCollege(ctx context.Context, id int32) (*domain.College, error) {
	var out *domain.College
	r.with(func(d *data) {
		if c, ok := d.colleges[id]; ok {
			out = &c
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *organizationRepository) GetDepartment(ctx context.Context, id int32) (*domain.Department, error) {
	var out *domain.Department
	r.with(func(d *data) {
		if dep, ok := d.departments[id]; ok {
			out = &dep
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

type projectRepository struct{ access }

func (r *projectRepository) GetByID(ctx context.Context, id int32) (*domain.Project, error) {
	var out *domain.Project
	r.with(func(d *data) {
		if p, ok := d.projects[id]; ok {
			out = &p
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

type groupRepository struct{ access }

func (r *groupRepository) Create(ctx context.Context, g *domain.Group) error {
	r.with(func(d *data) {
		g.ID = d.next("groups")
		d.groups[g.ID] = *g
	})
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int32) (*domain.Group, error) {
	var out *domain.Group
	r.with(func(d *data) {
		if g, ok := d.groups[id]; ok {
			out = &g
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *groupRepository) AddMember(ctx context.Context, m *domain.GroupMember) error {
	r.with(func(d *data) {
		for _, existing := range d.members {
			if existing.GroupID == m.GroupID && existing.UserID == m.UserID {
				return
			}
		}
		d.members = append(d.members, *m)
	})
	return nil
}

func (r *groupRepository) AddSupervisor(ctx context.Context, s *domain.GroupSupervisor) error {
	var err error
	r.with(func(d *data) {
		for _, existing := range d.supervisors {
			if existing.GroupID == s.GroupID && existing.UserID == s.UserID {
				err = repository.ErrDuplicate
				return
			}
		}
		s.ID = d.next("group_supervisors")
		d.supervisors = append(d.supervisors, *s)
	})
	return err
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID int32) ([]domain.GroupMember, error) {
	var out []domain.GroupMember
	r.with(func(d *data) {
		for _, m := range d.members {
			if m.GroupID == groupID {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (r *groupRepository) ListSupervisors(ctx context.Context, groupID int32) ([]domain.GroupSupervisor, error) {
	var out []domain.GroupSupervisor
	r.with(func(d *data) {
		for _, s := range d.supervisors {
			if s.GroupID == groupID {
				out = append(out, s)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type invitationRepository struct{ access }

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	var err error
	r.with(func(d *data) {
		for _, existing := range d.invitations {
			if existing.GroupID == inv.GroupID && existing.InvitedUserID == inv.InvitedUserID {
				err = repository.ErrDuplicate
				return
			}
		}
		inv.ID = d.next("invitations")
		d.invitations[inv.ID] = *inv
	})
	return err
}

func (r *invitationRepository) GetByID(ctx context.Context, id int32) (*domain.Invitation, error) {
	var out *domain.Invitation
	r.with(func(d *data) {
		if inv, ok := d.invitations[id]; ok {
			out = &inv
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *invitationRepository) GetByPair(ctx context.Context, groupID, userID int32) (*domain.Invitation, error) {
	var out *domain.Invitation
	r.with(func(d *data) {
		for _, inv := range d.invitations {
			if inv.GroupID == groupID && inv.InvitedUserID == userID {
				inv := inv
				out = &inv
				return
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *invitationRepository) filter(keep func(domain.Invitation) bool) []domain.Invitation {
	var out []domain.Invitation
	r.with(func(d *data) {
		for _, inv := range d.invitations {
			if keep(inv) {
				out = append(out, inv)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *invitationRepository) ListByUser(ctx context.Context, userID int32, status domain.InvitationStatus) ([]domain.Invitation, error) {
	return r.filter(func(inv domain.Invitation) bool {
		return inv.InvitedUserID == userID && (status == "" || inv.Status == status)
	}), nil
}

func (r *invitationRepository) LockByUser(ctx context.Context, userID int32) ([]domain.Invitation, error) {
	return r.ListByUser(ctx, userID, "")
}

func (r *invitationRepository) Transition(ctx context.Context, id int32, from, to domain.InvitationStatus, respondedAt time.Time) error {
	err := repository.ErrConflict
	r.with(func(d *data) {
		inv, ok := d.invitations[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		if inv.Status != from {
			return
		}
		inv.Status = to
		inv.RespondedAt = &respondedAt
		d.invitations[id] = inv
		err = nil
	})
	return err
}

func (r *invitationRepository) ListExpiring(ctx context.Context, from, until time.Time) ([]domain.Invitation, error) {
	return r.filter(func(inv domain.Invitation) bool {
		return inv.Status == domain.InvitationStatusPending &&
			!inv.ExpiresAt.Before(from) && !inv.ExpiresAt.After(until)
	}), nil
}

func (r *invitationRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Invitation, error) {
	return r.filter(func(inv domain.Invitation) bool {
		return inv.Status == domain.InvitationStatusPending && inv.ExpiresAt.Before(now)
	}), nil
}

func (r *invitationRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Invitation, error) {
	return r.filter(func(inv domain.Invitation) bool {
		return inv.Status == domain.InvitationStatusPending && inv.CreatedAt.Before(cutoff)
	}), nil
}

func (r *invitationRepository) DeleteTerminalRespondedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	r.with(func(d *data) {
		for id, inv := range d.invitations {
			if inv.Status != domain.InvitationStatusExpired && inv.Status != domain.InvitationStatusRejected {
				continue
			}
			if inv.RespondedAt != nil && inv.RespondedAt.Before(cutoff) {
				delete(d.invitations, id)
				n++
			}
		}
	})
	return n, nil
}

type groupRequestRepository struct{ access }

func (r *groupRequestRepository) Create(ctx context.Context, req *domain.GroupCreationRequest) error {
	r.with(func(d *data) {
		req.ID = d.next("group_requests")
		d.requests[req.ID] = *req
	})
	return nil
}

func (r *groupRequestRepository) GetByID(ctx context.Context, id int32) (*domain.GroupCreationRequest, error) {
	var out *domain.GroupCreationRequest
	r.with(func(d *data) {
		if req, ok := d.requests[id]; ok {
			out = &req
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

// GetForUpdate needs no extra locking: transactions already run one at a time.
func (r *groupRequestRepository) GetForUpdate(ctx context.Context, id int32) (*domain.GroupCreationRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *groupRequestRepository) MarkFinalized(ctx context.Context, id, groupID int32) error {
	return r.update(id, func(req *domain.GroupCreationRequest) bool {
		if req.IsFullyConfirmed || req.Status != domain.GroupRequestStatusOpen {
			return false
		}
		req.IsFullyConfirmed = true
		req.Status = domain.GroupRequestStatusFinalized
		req.GroupID = &groupID
		return true
	})
}

func (r *groupRequestRepository) MarkAbandoned(ctx context.Context, id int32) error {
	return r.update(id, func(req *domain.GroupCreationRequest) bool {
		if req.Status != domain.GroupRequestStatusOpen {
			return false
		}
		req.Status = domain.GroupRequestStatusAbandoned
		return true
	})
}

func (r *groupRequestRepository) update(id int32, apply func(*domain.GroupCreationRequest) bool) error {
	err := repository.ErrConflict
	r.with(func(d *data) {
		req, ok := d.requests[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		if apply(&req) {
			d.requests[id] = req
			err = nil
		}
	})
	return err
}

func (r *groupRequestRepository) CreateApproval(ctx context.Context, a *domain.GroupMemberApproval) error {
	var err error
	r.with(func(d *data) {
		for _, existing := range d.memberAcks {
			if existing.RequestID == a.RequestID && existing.UserID == a.UserID {
				err = repository.ErrDuplicate
				return
			}
		}
		a.ID = d.next("group_member_approvals")
		d.memberAcks[a.ID] = *a
	})
	return err
}

func (r *groupRequestRepository) GetApproval(ctx context.Context, id int32) (*domain.GroupMemberApproval, error) {
	var out *domain.GroupMemberApproval
	r.with(func(d *data) {
		if a, ok := d.memberAcks[id]; ok {
			out = &a
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *groupRequestRepository) ListApprovals(ctx context.Context, requestID int32) ([]domain.GroupMemberApproval, error) {
	var out []domain.GroupMemberApproval
	r.with(func(d *data) {
		for _, a := range d.memberAcks {
			if a.RequestID == requestID {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *groupRequestRepository) RespondApproval(ctx context.Context, id int32, status domain.MemberApprovalStatus, respondedAt time.Time) error {
	err := repository.ErrConflict
	r.with(func(d *data) {
		a, ok := d.memberAcks[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		if a.Status != domain.MemberApprovalPending {
			return
		}
		a.Status = status
		a.RespondedAt = &respondedAt
		d.memberAcks[id] = a
		err = nil
	})
	return err
}

type approvalRepository struct{ access }

func (r *approvalRepository) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	r.with(func(d *data) {
		req.ID = d.next("approval_requests")
		d.approvals[req.ID] = *req
	})
	return nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id int32) (*domain.ApprovalRequest, error) {
	var out *domain.ApprovalRequest
	r.with(func(d *data) {
		if a, ok := d.approvals[id]; ok {
			out = &a
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *approvalRepository) update(id, fromStep int32, apply func(*domain.ApprovalRequest)) error {
	err := repository.ErrConflict
	r.with(func(d *data) {
		a, ok := d.approvals[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		if a.Status != domain.ApprovalStatusPending || a.Step != fromStep {
			return
		}
		apply(&a)
		d.approvals[id] = a
		err = nil
	})
	return err
}

func (r *approvalRepository) Advance(ctx context.Context, id, fromStep, nextApproverID int32, comments string, at time.Time) error {
	return r.update(id, fromStep, func(a *domain.ApprovalRequest) {
		a.Step = fromStep + 1
		a.CurrentApproverID = nextApproverID
		a.Comments = comments
		a.UpdatedAt = at
	})
}

func (r *approvalRepository) Close(ctx context.Context, id, fromStep int32, status domain.ApprovalStatus, comments string, at time.Time) error {
	return r.update(id, fromStep, func(a *domain.ApprovalRequest) {
		a.Status = status
		a.Comments = comments
		a.UpdatedAt = at
		if status == domain.ApprovalStatusApproved {
			a.ApprovedAt = &at
		}
	})
}

func (r *approvalRepository) list(keep func(domain.ApprovalRequest) bool) []domain.ApprovalRequest {
	var out []domain.ApprovalRequest
	r.with(func(d *data) {
		for _, a := range d.approvals {
			if keep(a) {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *approvalRepository) ListPendingByApprover(ctx context.Context, approverID int32) ([]domain.ApprovalRequest, error) {
	return r.list(func(a domain.ApprovalRequest) bool {
		return a.Status == domain.ApprovalStatusPending && a.CurrentApproverID == approverID
	}), nil
}

func (r *approvalRepository) ListPendingUpdatedBefore(ctx context.Context, cutoff time.Time) ([]domain.ApprovalRequest, error) {
	return r.list(func(a domain.ApprovalRequest) bool {
		return a.Status == domain.ApprovalStatusPending && a.UpdatedAt.Before(cutoff)
	}), nil
}

type notificationRepository struct{ access }

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.with(func(d *data) {
		n.ID = d.next("notifications")
		d.notifications[n.ID] = *n
	})
	return nil
}

func (r *notificationRepository) query(keep func(domain.Notification) bool) []domain.Notification {
	var out []domain.Notification
	r.with(func(d *data) {
		for _, n := range d.notifications {
			if keep(n) {
				out = append(out, n)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *notificationRepository) List(ctx context.Context, userID int32, unreadOnly bool, limit int32) ([]domain.Notification, error) {
	out := r.query(func(n domain.Notification) bool {
		return n.RecipientID == userID && (!unreadOnly || !n.IsRead)
	})
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepository) ListUnreadByType(ctx context.Context, userID int32, t domain.NotificationType) ([]domain.Notification, error) {
	return r.query(func(n domain.Notification) bool {
		return n.RecipientID == userID && !n.IsRead && n.Type == t
	}), nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID int32) (int64, error) {
	var n int64
	r.with(func(d *data) {
		for _, note := range d.notifications {
			if note.RecipientID == userID && !note.IsRead {
				n++
			}
		}
	})
	return n, nil
}

func (r *notificationRepository) Stats(ctx context.Context, userID int32) (*domain.NotificationStats, error) {
	stats := &domain.NotificationStats{UnreadByType: make(map[domain.NotificationType]int64)}
	r.with(func(d *data) {
		for _, note := range d.notifications {
			if note.RecipientID != userID {
				continue
			}
			stats.Total++
			if !note.IsRead {
				stats.Unread++
				stats.UnreadByType[note.Type]++
			}
		}
	})
	return stats, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID int32, at time.Time) (bool, error) {
	var ok bool
	r.with(func(d *data) {
		n, found := d.notifications[id]
		if !found || n.RecipientID != userID {
			return
		}
		if !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			d.notifications[id] = n
		}
		ok = true
	})
	return ok, nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int32, at time.Time) (int64, error) {
	var count int64
	r.with(func(d *data) {
		for id, n := range d.notifications {
			if n.RecipientID == userID && !n.IsRead {
				n.IsRead = true
				n.ReadAt = &at
				d.notifications[id] = n
				count++
			}
		}
	})
	return count, nil
}

func (r *notificationRepository) MarkEmailSent(ctx context.Context, id int32) error {
	err := repository.ErrNotFound
	r.with(func(d *data) {
		if n, ok := d.notifications[id]; ok {
			n.IsSentEmail = true
			d.notifications[id] = n
			err = nil
		}
	})
	return err
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID int32) (bool, error) {
	var ok bool
	r.with(func(d *data) {
		if n, found := d.notifications[id]; found && n.RecipientID == userID {
			delete(d.notifications, id)
			ok = true
		}
	})
	return ok, nil
}

func (r *notificationRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	r.with(func(d *data) {
		for id, n := range d.notifications {
			if n.CreatedAt.Before(cutoff) {
				delete(d.notifications, id)
				count++
			}
		}
	})
	return count, nil
}

func (r *notificationRepository) ExistsSince(ctx context.Context, recipientID int32, t domain.NotificationType, related domain.RelatedEntity, since time.Time) (bool, error) {
	var found bool
	r.with(func(d *data) {
		for _, n := range d.notifications {
			if n.RecipientID == recipientID && n.Type == t && n.Related == related && !n.CreatedAt.Before(since) {
				found = true
				return
			}
		}
	})
	return found, nil
}
