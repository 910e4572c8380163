package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gpms-backend/internal/logger"
	"gpms-backend/internal/service"

	"github.com/google/uuid"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// httpError is a transport-level failure such as a malformed path or body
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func badRequest(message string) error {
	return &httpError{status: http.StatusBadRequest, message: message}
}

func unauthenticated(message string) error {
	return &httpError{status: http.StatusUnauthorized, message: message}
}

// statusFor maps workflow error kinds onto HTTP status codes
func statusFor(kind service.Kind) (int, string) {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case service.KindInvalidState:
		return http.StatusConflict, "INVALID_STATE"
	case service.KindExpired:
		return http.StatusGone, "EXPIRED"
	case service.KindValidation:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case service.KindUnauthorized:
		return http.StatusForbidden, "FORBIDDEN"
	case service.KindConflict:
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	message := "Internal server error"

	var he *httpError
	var se *service.Error
	switch {
	case errors.As(err, &he):
		status, message = he.status, he.message
		code = http.StatusText(status)
	case errors.As(err, &se):
		status, code = statusFor(se.Kind)
		if status != http.StatusInternalServerError {
			message = se.Message
		}
	}

	traceID := uuid.NewString()[:8]
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "trace_id", traceID, "error", err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, ErrorResponse{Code: code, Message: message, TraceID: traceID})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
