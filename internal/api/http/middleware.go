package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gpms-backend/internal/config"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/metrics"
	"gpms-backend/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserIDFromContext returns the authenticated caller set by AuthMiddleware
func UserIDFromContext(ctx context.Context) (int32, error) {
	id, ok := ctx.Value(userIDKey).(int32)
	if !ok || id == 0 {
		return 0, unauthenticated("user is not authenticated")
	}
	return id, nil
}

// AuthMiddleware checks the bearer token on every route whose name is not public
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := config.SecurityAccess
		if route := mux.CurrentRoute(r); route != nil {
			level = config.GetSecurityLevel(route.GetName())
		}
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeError(w, r, unauthenticated("authorization token is not provided"))
			return
		}
		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeError(w, r, unauthenticated("invalid token: "+err.Error()))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = logger.WithAttrs(ctx, "user_id", claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the Authorization header, falling back to the
// access_token query parameter browsers use for websocket upgrades.
func extractToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		return token[7:]
	}
	if token != "" {
		return token
	}
	return r.URL.Query().Get("access_token")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observe records request latency per named route and tags the request
// logger with a request id.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := "unknown"
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			name = route.GetName()
		}
		if name == "notifications.stream" {
			// Upgraded connections need the raw writer and live for minutes.
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := logger.WithAttrs(r.Context(), "request_id", uuid.NewString(), "route", name)
		next.ServeHTTP(rec, r.WithContext(ctx))
		metrics.APILatency.WithLabelValues(name, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
