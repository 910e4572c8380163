package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/email"
	"gpms-backend/internal/repository"
	"gpms-backend/internal/repository/memory"
	"gpms-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmailQueue struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (q *fakeEmailQueue) Enqueue(msg email.Message, onSent func(ctx context.Context)) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.mu.Lock()
	q.sent = append(q.sent, msg)
	q.mu.Unlock()
	if onSent != nil {
		onSent(context.Background())
	}
	return "email-test", nil
}

type failingNotifications struct {
	repository.NotificationRepository
}

func (failingNotifications) Create(ctx context.Context, n *domain.Notification) error {
	return errors.New("notification_logs is unavailable")
}

// brokenStore wraps a memory store whose notification inserts always fail.
type brokenStore struct {
	*memory.Store
}

func (s brokenStore) wrap(r repository.Repos) repository.Repos {
	r.Notifications = failingNotifications{r.Notifications}
	return r
}

func (s brokenStore) Repos() repository.Repos {
	return s.wrap(s.Store.Repos())
}

func (s brokenStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return fn(ctx, s.wrap(r))
	})
}

func TestDispatcher_DispatchDeliversEverywhere(t *testing.T) {
	f := newFixture(t)
	queue := &fakeEmailQueue{}
	d := service.NewDispatcher(f.store, queue, f.publisher, service.WithClock(f.clock.Now))

	n := d.Dispatch(f.ctx, f.student(0), domain.NotificationSystem, "Welcome", "Your account is ready.", domain.NoRelated())
	require.NotNil(t, n)
	assert.NotZero(t, n.ID)
	assert.False(t, n.IsRead)
	assert.Equal(t, f.clock.Now(), n.CreatedAt)

	require.Len(t, queue.sent, 1)
	assert.Equal(t, f.w.students[0].Email, queue.sent[0].To)
	assert.Equal(t, "Welcome", queue.sent[0].Subject)
	assert.Contains(t, queue.sent[0].Body, "Your account is ready.")
	assert.Equal(t, 1, f.publisher.count())

	notes, err := d.List(f.ctx, f.student(0), false, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].IsSentEmail)
}

func TestDispatcher_EmailFailureKeepsNotification(t *testing.T) {
	f := newFixture(t)
	queue := &fakeEmailQueue{err: email.ErrQueueFull}
	d := service.NewDispatcher(f.store, queue, f.publisher, service.WithClock(f.clock.Now))

	n := d.Dispatch(f.ctx, f.student(0), domain.NotificationMessage, "Hello", "A message for you.", domain.RelatedToUser(f.student(1)))
	require.NotNil(t, n)

	notes, err := d.List(f.ctx, f.student(0), true, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].IsSentEmail)
	assert.Equal(t, domain.RelatedToUser(f.student(1)), notes[0].Related)
}

func TestDispatcher_StoreFailureDoesNotBreakWorkflow(t *testing.T) {
	f := newFixture(t)
	broken := brokenStore{f.store}
	withClock := service.WithClock(f.clock.Now)
	d := service.NewDispatcher(broken, nil, f.publisher, withClock)
	invitations := service.NewInvitationService(broken, d, f.checker, 48*time.Hour, withClock)

	assert.Nil(t, d.Dispatch(f.ctx, f.student(0), domain.NotificationSystem, "Welcome", "Hi.", domain.NoRelated()))

	g := f.group(t, "Alpha", f.w.supervisor.ID, f.student(0))
	inv, created, err := invitations.Send(f.ctx, g.ID, f.student(1), f.student(0))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.InvitationStatusPending, inv.Status)

	counts := f.store.Counts()
	assert.Equal(t, 1, counts["invitations"])
	assert.Equal(t, 0, counts["notifications"])
	assert.Equal(t, 0, f.publisher.count())
}

func TestDispatcher_InboxOperations(t *testing.T) {
	f := newFixture(t)
	owner, other := f.student(0), f.student(1)

	first := f.notes.Dispatch(f.ctx, owner, domain.NotificationSystem, "One", "First.", domain.NoRelated())
	f.clock.Advance(time.Minute)
	second := f.notes.Dispatch(f.ctx, owner, domain.NotificationMessage, "Two", "Second.", domain.NoRelated())
	f.clock.Advance(time.Minute)
	f.notes.Dispatch(f.ctx, owner, domain.NotificationMessage, "Three", "Third.", domain.NoRelated())
	require.NotNil(t, first)
	require.NotNil(t, second)

	notes, err := f.notes.List(f.ctx, owner, false, 0)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "Three", notes[0].Title)

	ok, err := f.notes.MarkRead(f.ctx, first.ID, other)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.notes.MarkRead(f.ctx, first.ID, owner)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := f.notes.UnreadCount(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	stats, err := f.notes.Stats(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Unread)
	assert.Equal(t, int64(2), stats.UnreadByType[domain.NotificationMessage])

	ok, err = f.notes.Delete(f.ctx, second.ID, other)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.notes.Delete(f.ctx, second.ID, owner)
	require.NoError(t, err)
	assert.True(t, ok)

	marked, err := f.notes.MarkAllRead(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	unread, err := f.notes.List(f.ctx, owner, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)
	assert.NotNil(t, unread)

	empty, err := f.notes.List(f.ctx, other, false, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestDispatcher_PurgeOlderThan(t *testing.T) {
	f := newFixture(t)
	f.notes.Dispatch(f.ctx, f.student(0), domain.NotificationSystem, "Old", "Old news.", domain.NoRelated())
	f.clock.Advance(8 * 24 * time.Hour)
	f.notes.Dispatch(f.ctx, f.student(0), domain.NotificationSystem, "New", "Fresh news.", domain.NoRelated())

	_, err := f.notes.PurgeOlderThan(f.ctx, 0)
	assert.ErrorIs(t, err, service.ErrValidation)

	n, err := f.notes.PurgeOlderThan(f.ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, f.store.Counts()["notifications"])
}
