package jobs

import (
	"context"
	"errors"
	"testing"

	"gpms-backend/internal/config"
	"gpms-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type mockSweep struct {
	mock.Mock
}

func (m *mockSweep) RemindExpiring(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockSweep) ExpireStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockSweep) PurgeOld(ctx context.Context) (*service.PurgeResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*service.PurgeResult)
	return res, args.Error(1)
}

func (m *mockSweep) RemindStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestJobRunner_RunDispatchesByName(t *testing.T) {
	sweep := new(mockSweep)
	sweep.On("RemindExpiring", mock.Anything).Return(2, nil).Once()
	sweep.On("ExpireStale", mock.Anything).Return(1, nil).Once()
	sweep.On("PurgeOld", mock.Anything).Return(&service.PurgeResult{Notifications: 4}, nil).Once()
	sweep.On("RemindStale", mock.Anything).Return(0, nil).Once()

	jr := NewJobRunner(sweep, &config.Config{})
	for _, name := range []string{JobRemindExpiringInvitations, JobExpireStaleInvitations, JobPurgeOldRecords, JobRemindStaleApprovals} {
		require.NoError(t, jr.Run(name), name)
	}
	sweep.AssertExpectations(t)

	assert.ErrorIs(t, jr.Run("mark-overdue"), ErrUnknownJob)
}

func TestJobRunner_RunAllKeepsGoingAfterFailure(t *testing.T) {
	sweep := new(mockSweep)
	expireErr := errors.New("invitation 7: connection reset")
	purgeErr := errors.New("failed to purge notifications")
	sweep.On("ExpireStale", mock.Anything).Return(0, expireErr).Once()
	sweep.On("RemindExpiring", mock.Anything).Return(1, nil).Once()
	sweep.On("RemindStale", mock.Anything).Return(3, nil).Once()
	sweep.On("PurgeOld", mock.Anything).Return(&service.PurgeResult{}, purgeErr).Once()

	jr := NewJobRunner(sweep, &config.Config{})
	err := jr.Run(JobAll)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, expireErr)
	assert.ErrorIs(t, err, purgeErr)
	sweep.AssertExpectations(t)
}

func TestJobRunner_RecoversFromPanic(t *testing.T) {
	sweep := new(mockSweep)
	sweep.On("RemindStale", mock.Anything).Run(func(mock.Arguments) {
		panic("nil approver")
	}).Return(0, nil)

	jr := NewJobRunner(sweep, &config.Config{})
	var err error
	assert.NotPanics(t, func() { err = jr.RemindStaleApprovals() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil approver")
}

func TestJobRunner_JobsCarryDeadline(t *testing.T) {
	sweep := new(mockSweep)
	sweep.On("ExpireStale", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(0, nil).Once()

	jr := NewJobRunner(sweep, &config.Config{})
	require.NoError(t, jr.ExpireStaleInvitations())
	sweep.AssertExpectations(t)
}
