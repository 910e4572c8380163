package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gpms-backend/internal/config"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/metrics"
	"gpms-backend/internal/service"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// Job names accepted by Run and used as metric labels.
const (
	JobRemindExpiringInvitations = "remind-expiring-invitations"
	JobExpireStaleInvitations    = "expire-stale-invitations"
	JobPurgeOldRecords           = "purge-old-records"
	JobRemindStaleApprovals      = "remind-stale-approvals"
	JobAll                       = "all"
)

// ErrUnknownJob is returned by Run for a name outside JobNames
var ErrUnknownJob = errors.New("unknown job")

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	sweep   service.SweepService
	config  *config.Config
	timeout time.Duration
	flight  singleflight.Group
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(sweep service.SweepService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		sweep:   sweep,
		config:  cfg,
		timeout: 10 * time.Minute,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery. Overlapping
// calls for the same job share one execution.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) error {
	_, err, shared := jr.flight.Do(jobName, func() (result any, err error) {
		log := logger.WithJob(jobName)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				log.Error("Job panicked", "panic", r)
				err = fmt.Errorf("job %s panicked: %v", jobName, r)
			}
			metrics.SweepDuration.WithLabelValues(jobName).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.SweepRuns.WithLabelValues(jobName, "failure").Inc()
				log.Error("Job failed", "error", err, "duration", time.Since(start))
				return
			}
			metrics.SweepRuns.WithLabelValues(jobName, "success").Inc()
			log.Info("Job completed", "duration", time.Since(start))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
		defer cancel()
		ctx = logger.WithAttrs(ctx, "job", jobName)

		log.Info("Starting job")
		return nil, jobFunc(ctx)
	})
	if shared {
		metrics.SweepRuns.WithLabelValues(jobName, "shared").Inc()
	}
	return err
}

// Run executes one job by name, or every job for JobAll
func (jr *JobRunner) Run(jobName string) error {
	switch jobName {
	case JobRemindExpiringInvitations:
		return jr.RemindExpiringInvitations()
	case JobExpireStaleInvitations:
		return jr.ExpireStaleInvitations()
	case JobPurgeOldRecords:
		return jr.PurgeOldRecords()
	case JobRemindStaleApprovals:
		return jr.RemindStaleApprovals()
	case JobAll:
		return jr.RunAll()
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, jobName)
}

// RunAll runs every sweep job once, expiring before reminding so lapsed
// invitations are not nudged
func (jr *JobRunner) RunAll() error {
	return multierr.Combine(
		jr.ExpireStaleInvitations(),
		jr.RemindExpiringInvitations(),
		jr.RemindStaleApprovals(),
		jr.PurgeOldRecords(),
	)
}

// JobNames lists the names accepted by Run
func JobNames() []string {
	return []string{
		JobRemindExpiringInvitations,
		JobExpireStaleInvitations,
		JobPurgeOldRecords,
		JobRemindStaleApprovals,
		JobAll,
	}
}
