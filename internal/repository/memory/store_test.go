package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(groupID, userID int32, now time.Time) *domain.Invitation {
	return &domain.Invitation{
		GroupID:       groupID,
		InvitedUserID: userID,
		InvitedByID:   1,
		Status:        domain.InvitationStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(48 * time.Hour),
	}
}

func TestWithinTx_FailedTransactionLeavesNoTrace(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		require.NoError(t, r.Invitations.Create(ctx, pending(1, 2, now)))
		require.NoError(t, r.Notifications.Create(ctx, &domain.Notification{RecipientID: 2, CreatedAt: now}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Counts()["invitations"])
	assert.Equal(t, 0, s.Counts()["notifications"])

	err = s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Invitations.Create(ctx, pending(1, 2, now))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Counts()["invitations"])
}

func TestWithinTx_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithinTx_Serializes(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int32) {
			defer wg.Done()
			_ = s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
				return r.Notifications.Create(ctx, &domain.Notification{RecipientID: i, CreatedAt: time.Now()})
			})
		}(int32(i))
	}
	wg.Wait()
	assert.Equal(t, 20, s.Counts()["notifications"])
}

func TestInvitationRepository(t *testing.T) {
	s := NewStore()
	repo := s.Repos().Invitations
	ctx := context.Background()
	now := time.Now()

	inv := pending(1, 2, now)
	require.NoError(t, repo.Create(ctx, inv))
	assert.Equal(t, int32(1), inv.ID)

	t.Run("DuplicatePair", func(t *testing.T) {
		assert.ErrorIs(t, repo.Create(ctx, pending(1, 2, now)), repository.ErrDuplicate)
	})

	t.Run("TransitionIsCompareAndSet", func(t *testing.T) {
		require.NoError(t, repo.Transition(ctx, inv.ID, domain.InvitationStatusPending, domain.InvitationStatusAccepted, now))
		err := repo.Transition(ctx, inv.ID, domain.InvitationStatusPending, domain.InvitationStatusRejected, now)
		assert.ErrorIs(t, err, repository.ErrConflict)
		assert.ErrorIs(t, repo.Transition(ctx, 99, domain.InvitationStatusPending, domain.InvitationStatusRejected, now), repository.ErrNotFound)

		got, err := repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationStatusAccepted, got.Status)
		require.NotNil(t, got.RespondedAt)
	})

	t.Run("ExpiryWindows", func(t *testing.T) {
		soon := pending(2, 3, now.Add(-47*time.Hour))
		late := pending(3, 3, now.Add(-72*time.Hour))
		require.NoError(t, repo.Create(ctx, soon))
		require.NoError(t, repo.Create(ctx, late))

		expiring, err := repo.ListExpiring(ctx, now, now.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, expiring, 1)
		assert.Equal(t, soon.ID, expiring[0].ID)

		overdue, err := repo.ListOverdue(ctx, now)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, late.ID, overdue[0].ID)
	})
}

func TestNotificationRepository(t *testing.T) {
	s := NewStore()
	repo := s.Repos().Notifications
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	related := domain.RelatedEntity{Kind: domain.RelatedGroup, ID: 4}

	for i, typ := range []domain.NotificationType{domain.NotificationInvitation, domain.NotificationReminder, domain.NotificationInvitation} {
		require.NoError(t, repo.Create(ctx, &domain.Notification{
			RecipientID: 7,
			Type:        typ,
			Related:     related,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Notification{RecipientID: 8, Type: domain.NotificationSystem, CreatedAt: base}))

	t.Run("NewestFirstWithLimit", func(t *testing.T) {
		notes, err := repo.List(ctx, 7, false, 2)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, int32(3), notes[0].ID)
		assert.Equal(t, int32(2), notes[1].ID)
	})

	t.Run("ReadOnlyByOwner", func(t *testing.T) {
		ok, err := repo.MarkAsRead(ctx, 1, 8, base)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.MarkAsRead(ctx, 1, 7, base)
		require.NoError(t, err)
		assert.True(t, ok)

		count, err := repo.UnreadCount(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Total)
		assert.Equal(t, int64(2), stats.Unread)
		assert.Equal(t, int64(1), stats.UnreadByType[domain.NotificationInvitation])
		assert.Equal(t, int64(1), stats.UnreadByType[domain.NotificationReminder])
	})

	t.Run("ExistsSince", func(t *testing.T) {
		found, err := repo.ExistsSince(ctx, 7, domain.NotificationReminder, related, base)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = repo.ExistsSince(ctx, 7, domain.NotificationReminder, related, base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.False(t, found)

		found, err = repo.ExistsSince(ctx, 7, domain.NotificationReminder, domain.RelatedEntity{Kind: domain.RelatedGroup, ID: 5}, base)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DeleteCreatedBefore", func(t *testing.T) {
		n, err := repo.DeleteCreatedBefore(ctx, base.Add(90*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.Equal(t, 1, s.Counts()["notifications"])
	})
}

func TestLatestAffiliation(t *testing.T) {
	s := NewStore()
	repo := s.Repos().Users
	ctx := context.Background()
	dept := int32(3)

	s.AddAffiliation(domain.AcademicAffiliation{UserID: 1, UniversityID: 1, StartDate: time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)})
	s.AddAffiliation(domain.AcademicAffiliation{UserID: 1, UniversityID: 1, DepartmentID: &dept, StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)})

	a, err := repo.LatestAffiliation(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, a.DepartmentID)
	assert.Equal(t, dept, *a.DepartmentID)

	_, err = repo.LatestAffiliation(ctx, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
