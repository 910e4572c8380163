package jobs

import (
	"context"

	"gpms-backend/internal/logger"
)

// RemindExpiringInvitations warns invitees whose invitation is about to lapse
func (jr *JobRunner) RemindExpiringInvitations() error {
	return jr.runWithRecovery(JobRemindExpiringInvitations, func(ctx context.Context) error {
		sent, err := jr.sweep.RemindExpiring(ctx)
		logger.InfoContext(ctx, "Expiring invitation reminders", "sent", sent)
		return err
	})
}

// ExpireStaleInvitations marks overdue pending invitations as expired
func (jr *JobRunner) ExpireStaleInvitations() error {
	return jr.runWithRecovery(JobExpireStaleInvitations, func(ctx context.Context) error {
		expired, err := jr.sweep.ExpireStale(ctx)
		logger.InfoContext(ctx, "Expired stale invitations", "count", expired)
		return err
	})
}

// PurgeOldRecords deletes notifications and finished invitations past retention
func (jr *JobRunner) PurgeOldRecords() error {
	return jr.runWithRecovery(JobPurgeOldRecords, func(ctx context.Context) error {
		res, err := jr.sweep.PurgeOld(ctx)
		if res != nil {
			logger.InfoContext(ctx, "Purged old records", "notifications", res.Notifications, "invitations", res.Invitations)
		}
		return err
	})
}

// RemindStaleApprovals nudges approvers and invitees who have not answered
func (jr *JobRunner) RemindStaleApprovals() error {
	return jr.runWithRecovery(JobRemindStaleApprovals, func(ctx context.Context) error {
		sent, err := jr.sweep.RemindStale(ctx)
		logger.InfoContext(ctx, "Stale reminders", "sent", sent)
		return err
	})
}
