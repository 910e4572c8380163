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

	"go.uber.org/multierr"
)

// PurgeResult counts rows removed by the retention pass.
type PurgeResult struct {
	Notifications int64 `json:"notifications"`
	Invitations   int64 `json:"invitations"`
}

type sweepWindows struct {
	reminderWindow        time.Duration
	reminderDedupe        time.Duration
	staleAfter            time.Duration
	staleDedupe           time.Duration
	notificationRetention time.Duration
	invitationRetention   time.Duration
}

func windowsFrom(cfg config.SweepConfig) sweepWindows {
	orDefault := func(v int, unit, def time.Duration) time.Duration {
		if v <= 0 {
			return def
		}
		return time.Duration(v) * unit
	}
	day := 24 * time.Hour
	return sweepWindows{
		reminderWindow:        orDefault(cfg.ReminderWindowMinutes, time.Minute, time.Hour),
		reminderDedupe:        orDefault(cfg.ReminderDedupeMinutes, time.Minute, 2*time.Hour),
		staleAfter:            orDefault(cfg.StaleAfterHours, time.Hour, day),
		staleDedupe:           orDefault(cfg.StaleDedupeHours, time.Hour, day),
		notificationRetention: orDefault(cfg.NotificationRetentionDays, day, 90*day),
		invitationRetention:   orDefault(cfg.InvitationRetentionDays, day, 30*day),
	}
}

type sweepService struct {
	store   repository.Store
	notes   *Dispatcher
	windows sweepWindows
	now     func() time.Time
}

func NewSweepService(store repository.Store, notes *Dispatcher, cfg config.SweepConfig, opts ...Option) SweepService {
	o := buildOptions(opts)
	return &sweepService{
		store:   store,
		notes:   notes,
		windows: windowsFrom(cfg),
		now:     o.now,
	}
}

// remindOnce records n unless the recipient already got the same kind of
// notice about the same entity since the cutoff. It reports whether a
// reminder was recorded.
func (s *sweepService) remindOnce(ctx context.Context, n note, since time.Time) (bool, error) {
	var (
		sent bool
		out  outbox
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		exists, err := r.Notifications.ExistsSince(ctx, n.recipientID, n.kind, n.related, since)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		sent = s.notes.record(ctx, r, &out, n) != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	s.notes.flush(ctx, out)
	return sent, nil
}

// RemindExpiring warns students whose invitation expires within the reminder window.
func (s *sweepService) RemindExpiring(ctx context.Context) (int, error) {
	log := logger.WithJob("remind_expiring")
	now := s.now()

	invs, err := s.store.Repos().Invitations.ListExpiring(ctx, now, now.Add(s.windows.reminderWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring invitations: %w", err)
	}

	var errs error
	sent := 0
	for _, inv := range invs {
		left := inv.ExpiresAt.Sub(now).Round(time.Minute)
		ok, err := s.remindOnce(ctx, note{
			recipientID: inv.InvitedUserID,
			kind:        domain.NotificationInvitationExpiring,
			title:       "Invitation expiring soon",
			message:     fmt.Sprintf("Your group invitation expires in %s. Accept or decline it before it lapses.", left),
			related:     domain.RelatedToGroup(inv.GroupID),
		}, now.Add(-s.windows.reminderDedupe))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invitation %d: %w", inv.ID, err))
			continue
		}
		if ok {
			sent++
		}
	}

	metrics.SweepAffected.WithLabelValues("remind_expiring").Add(float64(sent))
	log.Info("Expiring invitation reminders sent", "candidates", len(invs), "sent", sent)
	return sent, errs
}

// ExpireStale moves overdue pending invitations to expired. Rows answered
// concurrently are skipped.
func (s *sweepService) ExpireStale(ctx context.Context) (int, error) {
	log := logger.WithJob("expire_stale")
	now := s.now()

	invs, err := s.store.Repos().Invitations.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue invitations: %w", err)
	}

	var errs error
	expired := 0
	for i := range invs {
		inv := invs[i]
		var out outbox
		err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
			if err := r.Invitations.Transition(ctx, inv.ID, domain.InvitationStatusPending, domain.InvitationStatusExpired, now); err != nil {
				return err
			}
			s.notes.record(ctx, r, &out, expiredNote(&inv))
			return nil
		})
		if errors.Is(err, repository.ErrConflict) {
			log.Debug("Invitation already answered", "invitationID", inv.ID)
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invitation %d: %w", inv.ID, err))
			continue
		}
		s.notes.flush(ctx, out)
		logger.Transition(ctx, "invitation", inv.ID, string(domain.InvitationStatusPending), string(domain.InvitationStatusExpired), "reason", "sweep")
		metrics.WorkflowTransitions.WithLabelValues("invitation", string(domain.InvitationStatusExpired)).Inc()
		expired++
	}

	metrics.SweepAffected.WithLabelValues("expire_stale").Add(float64(expired))
	log.Info("Overdue invitations expired", "candidates", len(invs), "expired", expired)
	return expired, errs
}

// PurgeOld removes old notifications and long-finished invitations. Both
// deletions run even if one fails.
func (s *sweepService) PurgeOld(ctx context.Context) (*PurgeResult, error) {
	log := logger.WithJob("purge_old")
	now := s.now()
	repos := s.store.Repos()
	res := &PurgeResult{}

	var errs error
	n, err := repos.Notifications.DeleteCreatedBefore(ctx, now.Add(-s.windows.notificationRetention))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to purge notifications: %w", err))
	}
	res.Notifications = n

	n, err = repos.Invitations.DeleteTerminalRespondedBefore(ctx, now.Add(-s.windows.invitationRetention))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to purge invitations: %w", err))
	}
	res.Invitations = n

	metrics.SweepAffected.WithLabelValues("purge_old").Add(float64(res.Notifications + res.Invitations))
	log.Info("Old records purged", "notifications", res.Notifications, "invitations", res.Invitations)
	return res, errs
}

// RemindStale nudges whoever is holding up a pending approval or invitation.
func (s *sweepService) RemindStale(ctx context.Context) (int, error) {
	log := logger.WithJob("remind_stale")
	now := s.now()
	cutoff := now.Add(-s.windows.staleAfter)
	since := now.Add(-s.windows.staleDedupe)
	repos := s.store.Repos()

	var errs error
	sent := 0
	remind := func(label string, id int32, n note) {
		ok, err := s.remindOnce(ctx, n, since)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s %d: %w", label, id, err))
			return
		}
		if ok {
			sent++
		}
	}

	approvals, err := repos.Approvals.ListPendingUpdatedBefore(ctx, cutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to list stale approvals: %w", err))
	}
	for _, a := range approvals {
		remind("approval", a.ID, note{
			recipientID: a.CurrentApproverID,
			kind:        domain.NotificationReminder,
			title:       "Approval waiting for you",
			message:     fmt.Sprintf("A %s request has been waiting for your decision since %s.", describeType(a.Type), a.UpdatedAt.Format(time.RFC1123)),
			related:     domain.RelatedToApproval(a.ID),
		})
	}

	invs, err := repos.Invitations.ListPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to list stale invitations: %w", err))
	}
	for _, inv := range invs {
		if inv.IsExpired(now) {
			continue
		}
		remind("invitation", inv.ID, note{
			recipientID: inv.InvitedUserID,
			kind:        domain.NotificationReminder,
			title:       "Pending group invitation",
			message:     fmt.Sprintf("You still have an unanswered group invitation. It expires on %s.", inv.ExpiresAt.Format(time.RFC1123)),
			related:     domain.RelatedToGroup(inv.GroupID),
		})
	}

	metrics.SweepAffected.WithLabelValues("remind_stale").Add(float64(sent))
	log.Info("Stale reminders sent", "approvals", len(approvals), "invitations", len(invs), "sent", sent)
	return sent, errs
}
