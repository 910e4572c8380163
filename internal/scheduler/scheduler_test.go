package scheduler

import (
	"context"
	"testing"

	"gpms-backend/internal/config"
	"gpms-backend/internal/jobs"
	"gpms-backend/internal/service"

	"github.com/stretchr/testify/assert"
)

type idleSweep struct{}

func (idleSweep) RemindExpiring(ctx context.Context) (int, error) { return 0, nil }
func (idleSweep) ExpireStale(ctx context.Context) (int, error)    { return 0, nil }
func (idleSweep) RemindStale(ctx context.Context) (int, error)    { return 0, nil }
func (idleSweep) PurgeOld(ctx context.Context) (*service.PurgeResult, error) {
	return &service.PurgeResult{}, nil
}

func TestNewScheduler_RegistersConfiguredJobs(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		RemindExpiringInvitations: "0 0 * * * *",
		ExpireStaleInvitations:    "0 0 */6 * * *",
		PurgeOldRecords:           "0 0 3 * * *",
		RemindStaleApprovals:      "0 0 */12 * * *",
	}}

	s := NewScheduler(jobs.NewJobRunner(idleSweep{}, cfg))
	assert.True(t, s.IsRunning())
	assert.ElementsMatch(t, []string{
		jobs.JobRemindExpiringInvitations,
		jobs.JobExpireStaleInvitations,
		jobs.JobPurgeOldRecords,
		jobs.JobRemindStaleApprovals,
	}, s.Registered())
}

func TestNewScheduler_SkipsInvalidSchedule(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		RemindExpiringInvitations: "every hour",
		ExpireStaleInvitations:    "0 0 */6 * * *",
		PurgeOldRecords:           "0 0 3 * * *",
		RemindStaleApprovals:      "0 0 */12 * * *",
	}}

	s := NewScheduler(jobs.NewJobRunner(idleSweep{}, cfg))
	assert.Len(t, s.Registered(), 3)
	assert.NotContains(t, s.Registered(), jobs.JobRemindExpiringInvitations)
}
