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

type invitationService struct {
	store   repository.Store
	notes   *Dispatcher
	checker Checker
	ttl     time.Duration
	now     func() time.Time
}

func NewInvitationService(store repository.Store, notes *Dispatcher, checker Checker, ttl time.Duration, opts ...Option) InvitationService {
	o := buildOptions(opts)
	if ttl <= 0 {
		ttl = domain.DefaultInvitationTTL
	}
	return &invitationService{
		store:   store,
		notes:   notes,
		checker: checker,
		ttl:     ttl,
		now:     o.now,
	}
}

// Send invites a student to a group. An existing invitation for the same
// pair is returned unchanged with created=false.
func (s *invitationService) Send(ctx context.Context, groupID, invitedUserID, invitedByID int32) (*domain.Invitation, bool, error) {
	const op = "InvitationService.Send"
	logger.EnterMethod(op, "groupID", groupID, "invitedUserID", invitedUserID, "invitedByID", invitedByID)

	if invitedUserID == invitedByID {
		return nil, false, newError(KindValidation, op, "cannot invite yourself")
	}
	if err := authorize(ctx, s.checker, op, invitedByID, ActionSendInvitation); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, false, err
	}

	var (
		inv     *domain.Invitation
		created bool
		out     outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		existing, err := r.Invitations.GetByPair(ctx, groupID, invitedUserID)
		if err == nil {
			inv = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		group, err := r.Groups.GetByID(ctx, groupID)
		if err != nil {
			return fromRepo(op, "group", err)
		}
		inviter, err := r.Users.GetByID(ctx, invitedByID)
		if err != nil {
			return fromRepo(op, "inviter", err)
		}
		if _, err := r.Users.GetByID(ctx, invitedUserID); err != nil {
			return fromRepo(op, "invited user", err)
		}

		now := s.now()
		inv = &domain.Invitation{
			GroupID:       groupID,
			InvitedUserID: invitedUserID,
			InvitedByID:   invitedByID,
			Status:        domain.InvitationStatusPending,
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.ttl),
		}
		if err := r.Invitations.Create(ctx, inv); err != nil {
			return err
		}
		created = true

		s.notes.record(ctx, r, &out, note{
			recipientID: invitedUserID,
			kind:        domain.NotificationInvitation,
			title:       "Group invitation",
			message:     fmt.Sprintf("%s invited you to join the group %q. The invitation expires on %s.", inviter.Name, group.Name, inv.ExpiresAt.Format(time.RFC1123)),
			related:     domain.RelatedToGroup(groupID),
		})
		return nil
	})

	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent send for the same pair.
		existing, getErr := s.store.Repos().Invitations.GetByPair(ctx, groupID, invitedUserID)
		if getErr != nil {
			return nil, false, fromRepo(op, "invitation", getErr)
		}
		logger.ExitMethod(op, "invitationID", existing.ID, "created", false)
		return existing, false, nil
	}
	if err != nil {
		err = txError(op, err)
		logger.ExitMethodWithError(op, err)
		return nil, false, err
	}

	s.notes.flush(ctx, out)
	if created {
		metrics.WorkflowTransitions.WithLabelValues("invitation", string(domain.InvitationStatusPending)).Inc()
	}
	logger.ExitMethod(op, "invitationID", inv.ID, "created", created)
	return inv, created, nil
}

// loadOwned returns the invitation when it belongs to actorID. Invitations
// owned by someone else are reported as not found.
func loadOwned(ctx context.Context, r repository.Repos, op string, id, actorID int32) (*domain.Invitation, error) {
	inv, err := r.Invitations.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(op, "invitation", err)
	}
	if inv.InvitedUserID != actorID {
		return nil, newError(KindNotFound, op, "invitation not found")
	}
	return inv, nil
}

func (s *invitationService) transition(ctx context.Context, r repository.Repos, op string, inv *domain.Invitation, to domain.InvitationStatus, now time.Time) error {
	if err := r.Invitations.Transition(ctx, inv.ID, domain.InvitationStatusPending, to, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return wrapError(KindConflict, op, "invitation was answered concurrently", err)
		}
		return err
	}
	logger.Transition(ctx, "invitation", inv.ID, string(inv.Status), string(to))
	metrics.WorkflowTransitions.WithLabelValues("invitation", string(to)).Inc()
	inv.Status = to
	inv.RespondedAt = &now
	return nil
}

// expireOnTouch commits the expiry of an overdue invitation discovered by a user action.
func (s *invitationService) expireOnTouch(ctx context.Context, r repository.Repos, out *outbox, op string, inv *domain.Invitation, now time.Time) error {
	if err := s.transition(ctx, r, op, inv, domain.InvitationStatusExpired, now); err != nil {
		return err
	}
	s.notes.record(ctx, r, out, expiredNote(inv))
	return nil
}

func expiredNote(inv *domain.Invitation) note {
	return note{
		recipientID: inv.InvitedUserID,
		kind:        domain.NotificationInvitationExpired,
		title:       "Invitation expired",
		message:     "Your group invitation has expired and can no longer be accepted.",
		related:     domain.RelatedToGroup(inv.GroupID),
	}
}

func (s *invitationService) Accept(ctx context.Context, invitationID, actorID int32) (*domain.Invitation, error) {
	const op = "InvitationService.Accept"
	logger.EnterMethod(op, "invitationID", invitationID, "actorID", actorID)

	if err := authorize(ctx, s.checker, op, actorID, ActionRespondInvitation); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	var (
		inv     *domain.Invitation
		expired bool
		out     outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := loadOwned(ctx, r, op, invitationID, actorID); err != nil {
			return err
		}

		// Lock every invitation of the student so concurrent accepts serialize.
		held, err := r.Invitations.LockByUser(ctx, actorID)
		if err != nil {
			return err
		}
		for i := range held {
			if held[i].ID == invitationID {
				inv = &held[i]
			}
		}
		if inv == nil {
			return newError(KindNotFound, op, "invitation not found")
		}
		if inv.Status != domain.InvitationStatusPending {
			return newError(KindInvalidState, op, fmt.Sprintf("invitation is %s", inv.Status))
		}

		now := s.now()
		if inv.IsExpired(now) {
			expired = true
			return s.expireOnTouch(ctx, r, &out, op, inv, now)
		}
		for _, other := range held {
			if other.ID != inv.ID && other.Status == domain.InvitationStatusAccepted {
				return newError(KindInvalidState, op, "already a member of another group")
			}
		}

		if err := s.transition(ctx, r, op, inv, domain.InvitationStatusAccepted, now); err != nil {
			return err
		}
		if err := r.Groups.AddMember(ctx, &domain.GroupMember{GroupID: inv.GroupID, UserID: actorID, JoinedAt: now}); err != nil {
			return err
		}

		student, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return fromRepo(op, "student", err)
		}

		for i := range held {
			other := &held[i]
			if other.ID == inv.ID || other.GroupID == inv.GroupID || other.Status != domain.InvitationStatusPending {
				continue
			}
			if err := r.Invitations.Transition(ctx, other.ID, domain.InvitationStatusPending, domain.InvitationStatusExpired, now); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					continue
				}
				return err
			}
			logger.Transition(ctx, "invitation", other.ID, string(domain.InvitationStatusPending), string(domain.InvitationStatusExpired), "reason", "withdrawn")
			metrics.WorkflowTransitions.WithLabelValues("invitation", string(domain.InvitationStatusExpired)).Inc()
			s.notes.record(ctx, r, &out, note{
				recipientID: other.InvitedByID,
				kind:        domain.NotificationInvitationWithdrawn,
				title:       "Invitation withdrawn",
				message:     fmt.Sprintf("%s joined another group, so your invitation was withdrawn.", student.Name),
				related:     domain.RelatedToGroup(other.GroupID),
			})
		}

		s.notes.record(ctx, r, &out, note{
			recipientID: inv.InvitedByID,
			kind:        domain.NotificationInvitationAccepted,
			title:       "Invitation accepted",
			message:     fmt.Sprintf("%s accepted your invitation and joined the group.", student.Name),
			related:     domain.RelatedToGroup(inv.GroupID),
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
	if expired {
		err := newError(KindExpired, op, "invitation has expired")
		metrics.WorkflowErrors.WithLabelValues(op, string(KindExpired)).Inc()
		logger.ExitMethodWithError(op, err)
		return inv, err
	}
	logger.ExitMethod(op, "invitationID", inv.ID, "status", inv.Status)
	return inv, nil
}

func (s *invitationService) Reject(ctx context.Context, invitationID, actorID int32) (*domain.Invitation, error) {
	const op = "InvitationService.Reject"
	logger.EnterMethod(op, "invitationID", invitationID, "actorID", actorID)

	if err := authorize(ctx, s.checker, op, actorID, ActionRespondInvitation); err != nil {
		logger.ExitMethodWithError(op, err)
		return nil, err
	}

	var (
		inv     *domain.Invitation
		expired bool
		out     outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		var err error
		inv, err = loadOwned(ctx, r, op, invitationID, actorID)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvitationStatusPending {
			return newError(KindInvalidState, op, fmt.Sprintf("invitation is %s", inv.Status))
		}

		now := s.now()
		if inv.IsExpired(now) {
			expired = true
			return s.expireOnTouch(ctx, r, &out, op, inv, now)
		}
		if err := s.transition(ctx, r, op, inv, domain.InvitationStatusRejected, now); err != nil {
			return err
		}

		student, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return fromRepo(op, "student", err)
		}
		s.notes.record(ctx, r, &out, note{
			recipientID: inv.InvitedByID,
			kind:        domain.NotificationInvitationRejected,
			title:       "Invitation declined",
			message:     fmt.Sprintf("%s declined your group invitation.", student.Name),
			related:     domain.RelatedToGroup(inv.GroupID),
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
	if expired {
		err := newError(KindExpired, op, "invitation has expired")
		logger.ExitMethodWithError(op, err)
		return inv, err
	}
	logger.ExitMethod(op, "invitationID", inv.ID, "status", inv.Status)
	return inv, nil
}

func (s *invitationService) ListForUser(ctx context.Context, userID int32, status domain.InvitationStatus) ([]domain.Invitation, error) {
	invs, err := s.store.Repos().Invitations.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, fromRepo("InvitationService.ListForUser", "invitations", err)
	}
	if invs == nil {
		invs = []domain.Invitation{}
	}
	return invs, nil
}
