package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gpms-backend/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID int32) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_DeliversOnlyToRecipient(t *testing.T) {
	hub := NewHub()
	alice := dialHub(t, hub, 7)
	bob := dialHub(t, hub, 8)

	event := Event{
		ID:          "evt-1",
		RecipientID: 7,
		Notification: domain.Notification{
			ID:          42,
			RecipientID: 7,
			Type:        domain.NotificationInvitation,
			Title:       "Group invitation",
			Related:     domain.RelatedToGroup(3),
		},
	}
	require.NoError(t, hub.Publish(context.Background(), event))

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, int32(42), got.Notification.ID)
	assert.Equal(t, domain.RelatedToGroup(3), got.Notification.Related)

	_ = bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 9)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(9) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSameOriginOrLoopback(t *testing.T) {
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{origin: "", host: "api.gpms.edu.ye", want: true},
		{origin: "https://api.gpms.edu.ye", host: "api.gpms.edu.ye:8080", want: true},
		{origin: "http://localhost:5173", host: "api.gpms.edu.ye", want: true},
		{origin: "http://127.0.0.1:3000", host: "api.gpms.edu.ye", want: true},
		{origin: "https://evil.example.com", host: "api.gpms.edu.ye", want: false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, sameOriginOrLoopback(r), tt.origin)
	}
}
