package scheduler

import (
	"log/slog"
	"time"

	"gpms-backend/internal/jobs"
	"gpms-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron    *cron.Cron
	jobs    *jobs.JobRunner
	entries map[string]cron.EntryID
}

// cronLogger forwards cron's own logging to slog
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	cl := cronLogger{log: logger.WithService("scheduler")}

	// UTC, seconds precision, and no overlapping runs of one entry
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{
		cron:    c,
		jobs:    jobRunner,
		entries: make(map[string]cron.EntryID),
	}

	s.registerJobs()
	return s
}

func (s *Scheduler) add(name, spec string, job func() error) {
	id, err := s.cron.AddFunc(spec, func() {
		if err := job(); err != nil {
			logger.Warn("Scheduled job finished with errors", "job", name, "error", err)
		}
	})
	if err != nil {
		logger.Error("Failed to register job", "job", name, "schedule", spec, "error", err)
		return
	}
	s.entries[name] = id
	logger.Debug("Registered job", "job", name, "schedule", spec)
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	s.add(jobs.JobRemindExpiringInvitations, cfg.RemindExpiringInvitations, s.jobs.RemindExpiringInvitations)
	s.add(jobs.JobExpireStaleInvitations, cfg.ExpireStaleInvitations, s.jobs.ExpireStaleInvitations)
	s.add(jobs.JobPurgeOldRecords, cfg.PurgeOldRecords, s.jobs.PurgeOldRecords)
	s.add(jobs.JobRemindStaleApprovals, cfg.RemindStaleApprovals, s.jobs.RemindStaleApprovals)

	logger.Info("Cron jobs registered", "count", len(s.entries))
}

// Registered returns the names of the jobs that were scheduled
func (s *Scheduler) Registered() []string {
	names := make([]string, 0, len(s.entries))
	for _, e := range s.cron.Entries() {
		for name, id := range s.entries {
			if id == e.ID {
				names = append(names, name)
			}
		}
	}
	return names
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
