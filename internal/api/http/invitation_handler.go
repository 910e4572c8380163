package http

import (
	"context"
	"net/http"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/service"
)

type InvitationHandler struct {
	svc service.InvitationService
}

func NewInvitationHandler(svc service.InvitationService) *InvitationHandler {
	return &InvitationHandler{svc: svc}
}

type sendInvitationRequest struct {
	GroupID       int32 `json:"group_id"`
	InvitedUserID int32 `json:"invited_user_id"`
}

// Send invites a student to the caller's group. A repeat invite for the
// same pair returns the existing invitation with 200 instead of 201.
func (h *InvitationHandler) Send(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	var req sendInvitationRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	if req.GroupID <= 0 || req.InvitedUserID <= 0 {
		return badRequest("group_id and invited_user_id are required")
	}

	inv, created, err := h.svc.Send(r.Context(), req.GroupID, req.InvitedUserID, userID)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, inv)
	return nil
}

func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	status := domain.InvitationStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.InvitationStatusPending, domain.InvitationStatusAccepted, domain.InvitationStatusRejected, domain.InvitationStatusExpired:
	default:
		return badRequest("unknown status filter")
	}

	invs, err := h.svc.ListForUser(r.Context(), userID, status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invs})
	return nil
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) error {
	return h.respond(w, r, h.svc.Accept)
}

func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) error {
	return h.respond(w, r, h.svc.Reject)
}

func (h *InvitationHandler) respond(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, invitationID, actorID int32) (*domain.Invitation, error)) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	inv, err := action(r.Context(), id, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, inv)
	return nil
}
