package app

import (
	"context"
	"testing"

	"gpms-backend/internal/config"
	"gpms-backend/internal/domain"
	"gpms-backend/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
server:
  port: 8080
database:
  driver: memory
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`))
	require.NoError(t, err)
	return cfg
}

func TestBuildWithMemoryStore(t *testing.T) {
	a, err := Build(context.Background(), memoryConfig(t), Options{LocalHub: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Emails)
	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.Hub)
	assert.NotNil(t, a.Invitations)
	assert.NotNil(t, a.GroupRequests)
	assert.NotNil(t, a.Approvals)
	assert.NotNil(t, a.Sweep)
	assert.NoError(t, a.Ping(context.Background()))
}

func TestPublishersWithoutRedis(t *testing.T) {
	a := &App{Config: memoryConfig(t)}

	pub, err := a.openPublishers(context.Background(), true)
	require.NoError(t, err)
	multi, ok := pub.(realtime.Multi)
	require.True(t, ok)
	require.Len(t, multi, 1)
	assert.Equal(t, "websocket", multi[0].Name())

	a.Hub = nil
	pub, err = a.openPublishers(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "none", pub.Name())
}

func TestNotificationsReachTheStore(t *testing.T) {
	a, err := Build(context.Background(), memoryConfig(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	note := a.Notifications
	n := note.Dispatch(ctx, 7, domain.NotificationSystem, "Hello", "Welcome aboard", domain.RelatedEntity{})
	require.NotNil(t, n)

	count, err := note.UnreadCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
