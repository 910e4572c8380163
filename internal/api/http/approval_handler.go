package http

import (
	"context"
	"net/http"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/service"
)

type ApprovalHandler struct {
	svc service.ApprovalService
}

func NewApprovalHandler(svc service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

type createApprovalRequest struct {
	Type      domain.ApprovalType `json:"approval_type"`
	GroupID   *int32              `json:"group_id"`
	ProjectID *int32              `json:"project_id"`
	Comments  string              `json:"comments"`
}

func (h *ApprovalHandler) Create(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	var req createApprovalRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	created, err := h.svc.Create(r.Context(), service.CreateApproval{
		Type:          req.Type,
		RequestedByID: userID,
		GroupID:       req.GroupID,
		ProjectID:     req.ProjectID,
		Comments:      req.Comments,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, created)
	return nil
}

func (h *ApprovalHandler) Pending(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	reqs, err := h.svc.ListPendingForApprover(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"approvals": reqs})
	return nil
}

type decisionRequest struct {
	Comments string `json:"comments"`
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) error {
	return h.decide(w, r, h.svc.Approve)
}

func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) error {
	return h.decide(w, r, h.svc.Reject)
}

func (h *ApprovalHandler) Return(w http.ResponseWriter, r *http.Request) error {
	return h.decide(w, r, h.svc.ReturnForRevision)
}

func (h *ApprovalHandler) decide(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error)) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req decisionRequest
	if err := decodeOptional(r, &req); err != nil {
		return err
	}

	updated, err := action(r.Context(), id, userID, req.Comments)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, updated)
	return nil
}
