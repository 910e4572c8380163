package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/metrics"
	"gpms-backend/internal/repository"
)

// CreateApproval starts a sign-off chain. At least one of GroupID and
// ProjectID is required.
type CreateApproval struct {
	Type          domain.ApprovalType `json:"approval_type" validate:"required,oneof=project_proposal student_transfer group_transfer external_project co_supervisor"`
	RequestedByID int32               `json:"requested_by_id" validate:"required,gt=0"`
	GroupID       *int32              `json:"group_id" validate:"required_without=ProjectID"`
	ProjectID     *int32              `json:"project_id"`
	Comments      string              `json:"comments" validate:"max=2000"`
}

type approvalService struct {
	store     repository.Store
	notes     *Dispatcher
	checker   Checker
	sequences map[domain.SequenceType][]domain.ApproverLevel
	now       func() time.Time
}

// NewApprovalService takes the configured level lists keyed by sequence type.
func NewApprovalService(store repository.Store, notes *Dispatcher, checker Checker, sequences map[string][]int32, opts ...Option) ApprovalService {
	o := buildOptions(opts)
	seqs := make(map[domain.SequenceType][]domain.ApproverLevel, len(sequences))
	for name, levels := range sequences {
		out := make([]domain.ApproverLevel, len(levels))
		for i, l := range levels {
			out[i] = domain.ApproverLevel(l)
		}
		seqs[domain.SequenceType(name)] = out
	}
	return &approvalService{
		store:     store,
		notes:     notes,
		checker:   checker,
		sequences: seqs,
		now:       o.now,
	}
}

func (s *approvalService) loadProposal(ctx context.Context, r repository.Repos, op string, groupID, projectID *int32, requesterID int32) (proposal, error) {
	p := proposal{requesterID: requesterID}
	if projectID != nil {
		project, err := r.Projects.GetByID(ctx, *projectID)
		if err != nil {
			return p, fromRepo(op, "project", err)
		}
		p.project = project
		if groupID == nil {
			groupID = project.GroupID
		}
	}
	if groupID != nil {
		group, err := r.Groups.GetByID(ctx, *groupID)
		if err != nil {
			return p, fromRepo(op, "group", err)
		}
		p.group = group
	}
	return p, nil
}

func (s *approvalService) Create(ctx context.Context, in CreateApproval) (*domain.ApprovalRequest, error) {
	const op = "ApprovalService.Create"
	logger.EnterMethod(op, "type", in.Type, "requestedByID", in.RequestedByID)

	if err := validateInput(op, in); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}
	if err := authorize(ctx, s.checker, op, in.RequestedByID, ActionRequestApproval); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	var (
		req *domain.ApprovalRequest
		out outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		requester, err := r.Users.GetByID(ctx, in.RequestedByID)
		if err != nil {
			return fromRepo(op, "requester", err)
		}
		p, err := s.loadProposal(ctx, r, op, in.GroupID, in.ProjectID, in.RequestedByID)
		if err != nil {
			return err
		}

		seq, err := classify(ctx, r, in.Type, p)
		if err != nil {
			return err
		}
		levels := s.sequences[seq]
		if len(levels) == 0 {
			return newError(KindValidation, op, fmt.Sprintf("no approval sequence configured for %s", seq))
		}

		sc, err := resolveScope(ctx, r, p)
		if err != nil {
			return err
		}
		approverID, err := approverFor(ctx, r, op, levels[0], p, sc)
		if err != nil {
			return err
		}

		now := s.now()
		req = &domain.ApprovalRequest{
			Type:              in.Type,
			RequestedByID:     in.RequestedByID,
			CurrentApproverID: approverID,
			Step:              1,
			SequenceType:      seq,
			Levels:            append([]domain.ApproverLevel(nil), levels...),
			Status:            domain.ApprovalStatusPending,
			Comments:          in.Comments,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if p.group != nil {
			req.GroupID = &p.group.ID
		}
		if p.project != nil {
			req.ProjectID = &p.project.ID
		}
		if err := r.Approvals.Create(ctx, req); err != nil {
			return err
		}

		s.notes.record(ctx, r, &out, note{
			recipientID: approverID,
			kind:        domain.NotificationApprovalRequest,
			title:       "Approval requested",
			message:     fmt.Sprintf("%s submitted a %s request that needs your approval as %s.", requester.Name, describeType(in.Type), levels[0]),
			related:     domain.RelatedToApproval(req.ID),
		})
		return nil
	})
	if err != nil {
		err = txError(op, err)
		metrics.WorkflowErrors.WithLabelValues(op, string(KindOf(err))).Inc()
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	s.notes.flush(ctx, out)
	metrics.WorkflowTransitions.WithLabelValues("approval", string(domain.ApprovalStatusPending)).Inc()
	logger.ExitMethod(op, "approvalID", req.ID, "sequence", req.SequenceType, "levels", len(req.Levels))
	return req, nil
}

func describeType(t domain.ApprovalType) string {
	switch t {
	case domain.ApprovalTypeProjectProposal:
		return "project proposal"
	case domain.ApprovalTypeStudentTransfer:
		return "student transfer"
	case domain.ApprovalTypeGroupTransfer:
		return "group transfer"
	case domain.ApprovalTypeExternalProject:
		return "external project"
	case domain.ApprovalTypeCoSupervisor:
		return "co-supervisor"
	}
	return string(t)
}

// loadActionable returns a pending request whose current approver is actorID.
func loadActionable(ctx context.Context, r repository.Repos, op string, id, actorID int32) (*domain.ApprovalRequest, error) {
	a, err := r.Approvals.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(op, "approval request", err)
	}
	if a.Status != domain.ApprovalStatusPending {
		return nil, newError(KindInvalidState, op, fmt.Sprintf("approval request is %s", a.Status))
	}
	if a.CurrentApproverID != actorID {
		return nil, newError(KindNotFound, op, "approval request not found")
	}
	return a, nil
}

func casError(op string, err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return wrapError(KindConflict, op, "approval request was updated concurrently", err)
	}
	return fromRepo(op, "approval request", err)
}

func (s *approvalService) Approve(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error) {
	const op = "ApprovalService.Approve"
	logger.EnterMethod(op, "approvalID", approvalID, "actorID", actorID)

	if err := authorize(ctx, s.checker, op, actorID, ActionApproveRequest); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	var (
		updated *domain.ApprovalRequest
		out     outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		a, err := loadActionable(ctx, r, op, approvalID, actorID)
		if err != nil {
			return err
		}
		now := s.now()

		if a.IsFinalStep() {
			if err := r.Approvals.Close(ctx, a.ID, a.Step, domain.ApprovalStatusApproved, comments, now); err != nil {
				return casError(op, err)
			}
			logger.Transition(ctx, "approval", a.ID, string(a.Status), string(domain.ApprovalStatusApproved), "step", a.Step)
			metrics.WorkflowTransitions.WithLabelValues("approval", string(domain.ApprovalStatusApproved)).Inc()
			s.notes.record(ctx, r, &out, note{
				recipientID: a.RequestedByID,
				kind:        domain.NotificationApprovalApproved,
				title:       "Request approved",
				message:     fmt.Sprintf("Your %s request received final approval.", describeType(a.Type)),
				related:     domain.RelatedToApproval(a.ID),
			})
		} else {
			next, _ := a.LevelAt(a.Step + 1)
			p, err := s.loadProposal(ctx, r, op, a.GroupID, a.ProjectID, a.RequestedByID)
			if err != nil {
				return err
			}
			sc, err := resolveScope(ctx, r, p)
			if err != nil {
				return err
			}
			nextApproverID, err := approverFor(ctx, r, op, next, p, sc)
			if err != nil {
				return err
			}
			if err := r.Approvals.Advance(ctx, a.ID, a.Step, nextApproverID, comments, now); err != nil {
				return casError(op, err)
			}
			logger.Transition(ctx, "approval", a.ID, string(a.Status), string(a.Status), "step", a.Step+1, "approverID", nextApproverID)
			metrics.WorkflowTransitions.WithLabelValues("approval", "advanced").Inc()
			s.notes.record(ctx, r, &out, note{
				recipientID: nextApproverID,
				kind:        domain.NotificationApprovalRequest,
				title:       "Approval requested",
				message:     fmt.Sprintf("A %s request was approved at the previous level and now needs your approval as %s.", describeType(a.Type), next),
				related:     domain.RelatedToApproval(a.ID),
			})
		}

		updated, err = r.Approvals.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		err = txError(op, err)
		metrics.WorkflowErrors.WithLabelValues(op, string(KindOf(err))).Inc()
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	s.notes.flush(ctx, out)
	logger.ExitMethod(op, "approvalID", updated.ID, "status", updated.Status, "step", updated.Step)
	return updated, nil
}

func (s *approvalService) Reject(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error) {
	return s.close(ctx, "ApprovalService.Reject", approvalID, actorID, comments, domain.ApprovalStatusRejected)
}

// ReturnForRevision ends the chain and sends the proposal back to the requester for edits.
func (s *approvalService) ReturnForRevision(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error) {
	return s.close(ctx, "ApprovalService.ReturnForRevision", approvalID, actorID, comments, domain.ApprovalStatusReturned)
}

func (s *approvalService) close(ctx context.Context, op string, approvalID, actorID int32, comments string, status domain.ApprovalStatus) (*domain.ApprovalRequest, error) {
	logger.EnterMethod(op, "approvalID", approvalID, "actorID", actorID)

	if err := authorize(ctx, s.checker, op, actorID, ActionApproveRequest); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	var (
		updated *domain.ApprovalRequest
		out     outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		a, err := loadActionable(ctx, r, op, approvalID, actorID)
		if err != nil {
			return err
		}
		if err := r.Approvals.Close(ctx, a.ID, a.Step, status, comments, s.now()); err != nil {
			return casError(op, err)
		}
		logger.Transition(ctx, "approval", a.ID, string(a.Status), string(status), "step", a.Step)
		metrics.WorkflowTransitions.WithLabelValues("approval", string(status)).Inc()

		n := note{recipientID: a.RequestedByID, related: domain.RelatedToApproval(a.ID)}
		if status == domain.ApprovalStatusReturned {
			n.kind = domain.NotificationApprovalReturned
			n.title = "Request returned for revision"
			n.message = fmt.Sprintf("Your %s request was returned for revision.", describeType(a.Type))
		} else {
			n.kind = domain.NotificationApprovalRejected
			n.title = "Request rejected"
			n.message = fmt.Sprintf("Your %s request was rejected.", describeType(a.Type))
		}
		if comments != "" {
			n.message += " Comments: " + comments
		}
		s.notes.record(ctx, r, &out, n)

		updated, err = r.Approvals.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		err = txError(op, err)
		metrics.WorkflowErrors.WithLabelValues(op, string(KindOf(err))).Inc()
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	s.notes.flush(ctx, out)
	logger.ExitMethod(op, "approvalID", updated.ID, "status", updated.Status)
	return updated, nil
}

func (s *approvalService) ListPendingForApprover(ctx context.Context, approverID int32) ([]domain.ApprovalRequest, error) {
	reqs, err := s.store.Repos().Approvals.ListPendingByApprover(ctx, approverID)
	if err != nil {
		return nil, fromRepo("ApprovalService.ListPendingForApprover", "approval requests", err)
	}
	if reqs == nil {
		reqs = []domain.ApprovalRequest{}
	}
	return reqs, nil
}
