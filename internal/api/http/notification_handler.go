package http

import (
	"net/http"
	"strconv"

	"gpms-backend/internal/realtime"
	"gpms-backend/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
	hub *realtime.Hub
}

func NewNotificationHandler(svc service.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{svc: svc, hub: hub}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return badRequest("limit must be a number")
		}
	}
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	notes, err := h.svc.List(r.Context(), userID, unreadOnly, int32(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes})
	return nil
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	count, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
	return nil
}

func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, stats)
	return nil
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	ok, err := h.svc.MarkRead(r.Context(), id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return &service.Error{Kind: service.KindNotFound, Op: "NotificationHandler.MarkRead", Message: "notification not found"}
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	n, err := h.svc.MarkAllRead(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
	return nil
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	ok, err := h.svc.Delete(r.Context(), id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return &service.Error{Kind: service.KindNotFound, Op: "NotificationHandler.Delete", Message: "notification not found"}
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Stream upgrades to a websocket that receives the caller's notifications live
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	if h.hub == nil {
		return &httpError{status: http.StatusServiceUnavailable, message: "live notifications are disabled"}
	}
	h.hub.Serve(userID, w, r)
	return nil
}
