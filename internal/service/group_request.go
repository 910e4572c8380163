package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gpms-backend/internal/config"
	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/metrics"
	"gpms-backend/internal/repository"
)

// SubmitGroupRequest proposes a group roster. The creator must be listed
// among the students.
type SubmitGroupRequest struct {
	CreatorID       int32   `json:"creator_id" validate:"required,gt=0"`
	GroupName       string  `json:"group_name" validate:"required,min=3,max=255"`
	DepartmentID    int32   `json:"department_id" validate:"required,gt=0"`
	CollegeID       int32   `json:"college_id" validate:"required,gt=0"`
	StudentIDs      []int32 `json:"student_ids" validate:"required,min=1,dive,gt=0"`
	SupervisorIDs   []int32 `json:"supervisor_ids" validate:"omitempty,dive,gt=0"`
	CoSupervisorIDs []int32 `json:"co_supervisor_ids" validate:"omitempty,dive,gt=0"`
	Note            string  `json:"note" validate:"max=2000"`
}

// GroupResponse is the outcome of one participant's answer.
type GroupResponse struct {
	Approval  *domain.GroupMemberApproval  `json:"approval"`
	Request   *domain.GroupCreationRequest `json:"request"`
	Finalized bool                         `json:"finalized"`
	Message   string                       `json:"message"`
}

type groupRequestService struct {
	store   repository.Store
	notes   *Dispatcher
	checker Checker
	limits  config.WorkflowConfig
	now     func() time.Time
}

func NewGroupRequestService(store repository.Store, notes *Dispatcher, checker Checker, limits config.WorkflowConfig, opts ...Option) GroupRequestService {
	o := buildOptions(opts)
	return &groupRequestService{
		store:   store,
		notes:   notes,
		checker: checker,
		limits:  limits,
		now:     o.now,
	}
}

type participant struct {
	userID int32
	role   domain.MemberRole
}

func (s *groupRequestService) validateRoster(op string, in SubmitGroupRequest) ([]participant, error) {
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	if s.limits.MaxStudents > 0 && len(in.StudentIDs) > s.limits.MaxStudents {
		return nil, newError(KindValidation, op, fmt.Sprintf("at most %d students are allowed", s.limits.MaxStudents))
	}
	if s.limits.MaxSupervisors > 0 && len(in.SupervisorIDs) > s.limits.MaxSupervisors {
		return nil, newError(KindValidation, op, fmt.Sprintf("at most %d supervisors are allowed", s.limits.MaxSupervisors))
	}
	if s.limits.MaxCoSupervisors > 0 && len(in.CoSupervisorIDs) > s.limits.MaxCoSupervisors {
		return nil, newError(KindValidation, op, fmt.Sprintf("at most %d co-supervisors are allowed", s.limits.MaxCoSupervisors))
	}

	seen := make(map[int32]bool)
	var roster []participant
	add := func(ids []int32, role domain.MemberRole) error {
		for _, id := range ids {
			if seen[id] {
				return newError(KindValidation, op, fmt.Sprintf("user %d is listed more than once", id))
			}
			seen[id] = true
			roster = append(roster, participant{userID: id, role: role})
		}
		return nil
	}
	if err := add(in.StudentIDs, domain.MemberRoleStudent); err != nil {
		return nil, err
	}
	if err := add(in.SupervisorIDs, domain.MemberRoleSupervisor); err != nil {
		return nil, err
	}
	if err := add(in.CoSupervisorIDs, domain.MemberRoleCoSupervisor); err != nil {
		return nil, err
	}

	creatorListed := false
	for _, id := range in.StudentIDs {
		if id == in.CreatorID {
			creatorListed = true
		}
	}
	if !creatorListed {
		return nil, newError(KindValidation, op, "the creator must be one of the students")
	}
	return roster, nil
}

func (s *groupRequestService) Submit(ctx context.Context, in SubmitGroupRequest) (*domain.GroupCreationRequest, error) {
	const op = "GroupRequestService.Submit"
	logger.EnterMethod(op, "creatorID", in.CreatorID, "groupName", in.GroupName)

	roster, err := s.validateRoster(op, in)
	if err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}
	if err := authorize(ctx, s.checker, op, in.CreatorID, ActionSubmitGroupRequest); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	var (
		req *domain.GroupCreationRequest
		out outbox
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		ids := make([]int32, len(roster))
		for i, p := range roster {
			ids[i] = p.userID
		}
		users, err := r.Users.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(users) != len(ids) {
			return newError(KindValidation, op, "some user ids do not exist")
		}
		names := make(map[int32]string, len(users))
		for _, u := range users {
			names[u.ID] = u.Name
		}

		dept, err := r.Orgs.GetDepartment(ctx, in.DepartmentID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindValidation, op, "department does not exist")
		} else if err != nil {
			return err
		}
		if _, err := r.Orgs.GetCollege(ctx, in.CollegeID); errors.Is(err, repository.ErrNotFound) {
			return newError(KindValidation, op, "college does not exist")
		} else if err != nil {
			return err
		}
		if dept.CollegeID != in.CollegeID {
			return newError(KindValidation, op, "department does not belong to the college")
		}

		now := s.now()
		req = &domain.GroupCreationRequest{
			GroupName:    in.GroupName,
			CreatorID:    in.CreatorID,
			DepartmentID: in.DepartmentID,
			CollegeID:    in.CollegeID,
			Note:         in.Note,
			Status:       domain.GroupRequestStatusOpen,
			CreatedAt:    now,
		}
		if err := r.GroupRequests.Create(ctx, req); err != nil {
			return err
		}

		for _, p := range roster {
			approval := &domain.GroupMemberApproval{
				RequestID: req.ID,
				UserID:    p.userID,
				Role:      p.role,
				Status:    domain.MemberApprovalPending,
			}
			if p.userID == in.CreatorID {
				approval.Status = domain.MemberApprovalAccepted
				approval.RespondedAt = &now
			}
			if err := r.GroupRequests.CreateApproval(ctx, approval); err != nil {
				return err
			}
			if p.userID == in.CreatorID {
				continue
			}

			n := note{recipientID: p.userID, related: domain.RelatedToRequest(req.ID)}
			if p.role == domain.MemberRoleStudent {
				n.kind = domain.NotificationInvitation
				n.title = "Group invitation"
				n.message = fmt.Sprintf("%s invited you to join the proposed group %q. Please accept or decline.", names[in.CreatorID], in.GroupName)
			} else {
				n.kind = domain.NotificationApprovalRequest
				n.title = "Supervision request"
				n.message = fmt.Sprintf("%s asked you to act as %s for the proposed group %q. Please accept or decline.", names[in.CreatorID], roleLabel(p.role), in.GroupName)
			}
			s.notes.record(ctx, r, &out, n)
		}

		// A roster of only the creator is complete on submission.
		_, err = s.finalize(ctx, r, &out, op, req)
		return err
	})
	if err != nil {
		err = txError(op, err)
		metrics.WorkflowErrors.WithLabelValues(op, string(KindOf(err))).Inc()
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	s.notes.flush(ctx, out)
	metrics.WorkflowTransitions.WithLabelValues("group_request", string(domain.GroupRequestStatusOpen)).Inc()
	logger.ExitMethod(op, "requestID", req.ID, "participants", len(roster))
	return req, nil
}

func roleLabel(role domain.MemberRole) string {
	if role == domain.MemberRoleCoSupervisor {
		return "co-supervisor"
	}
	return string(role)
}

func (s *groupRequestService) Respond(ctx context.Context, approvalID, actorID int32, decision domain.MemberApprovalStatus) (*GroupResponse, error) {
	const op = "GroupRequestService.Respond"
	logger.EnterMethod(op, "approvalID", approvalID, "actorID", actorID, "decision", decision)

	if decision != domain.MemberApprovalAccepted && decision != domain.MemberApprovalRejected {
		return nil, newError(KindValidation, op, "decision must be accepted or rejected")
	}
	if err := authorize(ctx, s.checker, op, actorID, ActionRespondGroupRequest); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	resp := &GroupResponse{}
	var out outbox
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		approval, err := r.GroupRequests.GetApproval(ctx, approvalID)
		if err != nil {
			return fromRepo(op, "approval", err)
		}
		if approval.UserID != actorID {
			return newError(KindNotFound, op, "approval not found")
		}

		req, err := r.GroupRequests.GetForUpdate(ctx, approval.RequestID)
		if err != nil {
			return fromRepo(op, "group request", err)
		}
		if req.Status != domain.GroupRequestStatusOpen {
			return newError(KindInvalidState, op, fmt.Sprintf("group request is %s", req.Status))
		}
		if approval.Status != domain.MemberApprovalPending {
			return newError(KindInvalidState, op, fmt.Sprintf("approval is already %s", approval.Status))
		}

		now := s.now()
		if err := r.GroupRequests.RespondApproval(ctx, approval.ID, decision, now); err != nil {
			return fromRepo(op, "approval", err)
		}
		logger.Transition(ctx, "group_member_approval", approval.ID, string(approval.Status), string(decision))
		metrics.WorkflowTransitions.WithLabelValues("group_member_approval", string(decision)).Inc()
		approval.Status = decision
		approval.RespondedAt = &now
		resp.Approval = approval
		resp.Request = req

		responder, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return fromRepo(op, "user", err)
		}

		if decision == domain.MemberApprovalRejected {
			if err := r.GroupRequests.MarkAbandoned(ctx, req.ID); err != nil {
				return fromRepo(op, "group request", err)
			}
			logger.Transition(ctx, "group_request", req.ID, string(req.Status), string(domain.GroupRequestStatusAbandoned))
			metrics.WorkflowTransitions.WithLabelValues("group_request", string(domain.GroupRequestStatusAbandoned)).Inc()
			req.Status = domain.GroupRequestStatusAbandoned
			s.notes.record(ctx, r, &out, note{
				recipientID: req.CreatorID,
				kind:        domain.NotificationGroupAbandoned,
				title:       "Group request declined",
				message:     fmt.Sprintf("%s declined to join %q, so the group request was closed.", responder.Name, req.GroupName),
				related:     domain.RelatedToRequest(req.ID),
			})
			resp.Message = "request declined; the group request has been closed"
			return nil
		}

		finalized, err := s.finalize(ctx, r, &out, op, req)
		if err != nil {
			return err
		}
		resp.Finalized = finalized
		if finalized {
			resp.Message = "accepted; all participants confirmed and the group was created"
		} else {
			resp.Message = "accepted; waiting for the remaining participants"
		}
		return nil
	})
	if err != nil {
		err = txError(op, err)
		metrics.WorkflowErrors.WithLabelValues(op, string(KindOf(err))).Inc()
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	s.notes.flush(ctx, out)
	logger.ExitMethod(op, "approvalID", approvalID, "finalized", resp.Finalized)
	return resp, nil
}

// finalize creates the group once every participant has accepted. The
// caller must hold the request lock. It reports whether this call created
// the group.
func (s *groupRequestService) finalize(ctx context.Context, r repository.Repos, out *outbox, op string, req *domain.GroupCreationRequest) (bool, error) {
	if req.IsFullyConfirmed || req.Status != domain.GroupRequestStatusOpen {
		return false, nil
	}

	approvals, err := r.GroupRequests.ListApprovals(ctx, req.ID)
	if err != nil {
		return false, err
	}
	tally := domain.Tally(approvals)
	if !tally.Complete() {
		logger.DebugContext(ctx, "Group request not yet confirmed", "requestID", req.ID, "accepted", tally.Accepted, "total", tally.Total)
		return false, nil
	}

	now := s.now()
	deptID, collegeID := req.DepartmentID, req.CollegeID
	group := &domain.Group{
		Name:         req.GroupName,
		DepartmentID: &deptID,
		CollegeID:    &collegeID,
		CreatedAt:    now,
	}
	if err := r.Groups.Create(ctx, group); err != nil {
		return false, err
	}

	for _, a := range approvals {
		switch a.Role {
		case domain.MemberRoleStudent:
			err = r.Groups.AddMember(ctx, &domain.GroupMember{GroupID: group.ID, UserID: a.UserID, JoinedAt: now})
		case domain.MemberRoleSupervisor:
			err = r.Groups.AddSupervisor(ctx, &domain.GroupSupervisor{GroupID: group.ID, UserID: a.UserID, Type: domain.SupervisorTypePrimary})
		case domain.MemberRoleCoSupervisor:
			err = r.Groups.AddSupervisor(ctx, &domain.GroupSupervisor{GroupID: group.ID, UserID: a.UserID, Type: domain.SupervisorTypeCo})
		}
		if err != nil {
			return false, err
		}
	}

	if err := r.GroupRequests.MarkFinalized(ctx, req.ID, group.ID); err != nil {
		return false, fromRepo(op, "group request", err)
	}
	logger.Transition(ctx, "group_request", req.ID, string(req.Status), string(domain.GroupRequestStatusFinalized), "groupID", group.ID)
	metrics.WorkflowTransitions.WithLabelValues("group_request", string(domain.GroupRequestStatusFinalized)).Inc()
	req.IsFullyConfirmed = true
	req.Status = domain.GroupRequestStatusFinalized
	req.GroupID = &group.ID

	for _, a := range approvals {
		s.notes.record(ctx, r, out, note{
			recipientID: a.UserID,
			kind:        domain.NotificationGroupCreated,
			title:       "Group created",
			message:     fmt.Sprintf("Everyone confirmed. The group %q has been created.", group.Name),
			related:     domain.RelatedToGroup(group.ID),
		})
	}
	return true, nil
}

func (s *groupRequestService) TryFinalize(ctx context.Context, requestID int32) (bool, error) {
	const op = "GroupRequestService.TryFinalize"
	logger.EnterMethod(op, "requestID", requestID)

	var (
		finalized bool
		out       outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		req, err := r.GroupRequests.GetForUpdate(ctx, requestID)
		if err != nil {
			return fromRepo(op, "group request", err)
		}
		finalized, err = s.finalize(ctx, r, &out, op, req)
		return err
	})
	if err != nil {
		err = txError(op, err)
		logger.ExitMethodWithError(op, err)
		return false, err
	}

	s.notes.flush(ctx, out)
	logger.ExitMethod(op, "requestID", requestID, "finalized", finalized)
	return finalized, nil
}

func (s *groupRequestService) Get(ctx context.Context, requestID int32) (*domain.GroupCreationRequest, []domain.GroupMemberApproval, error) {
	const op = "GroupRequestService.Get"
	repos := s.store.Repos()
	req, err := repos.GroupRequests.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, fromRepo(op, "group request", err)
	}
	approvals, err := repos.GroupRequests.ListApprovals(ctx, requestID)
	if err != nil {
		return nil, nil, fromRepo(op, "approvals", err)
	}
	return req, approvals, nil
}
