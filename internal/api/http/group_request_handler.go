package http

import (
	"net/http"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/service"
)

type GroupRequestHandler struct {
	svc service.GroupRequestService
}

func NewGroupRequestHandler(svc service.GroupRequestService) *GroupRequestHandler {
	return &GroupRequestHandler{svc: svc}
}

type submitGroupRequest struct {
	GroupName       string  `json:"group_name"`
	DepartmentID    int32   `json:"department_id"`
	CollegeID       int32   `json:"college_id"`
	StudentIDs      []int32 `json:"student_ids"`
	SupervisorIDs   []int32 `json:"supervisor_ids"`
	CoSupervisorIDs []int32 `json:"co_supervisor_ids"`
	Note            string  `json:"note"`
}

// Submit proposes a roster on behalf of the caller, who must be one of the students
func (h *GroupRequestHandler) Submit(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	var req submitGroupRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	created, err := h.svc.Submit(r.Context(), service.SubmitGroupRequest{
		CreatorID:       userID,
		GroupName:       req.GroupName,
		DepartmentID:    req.DepartmentID,
		CollegeID:       req.CollegeID,
		StudentIDs:      req.StudentIDs,
		SupervisorIDs:   req.SupervisorIDs,
		CoSupervisorIDs: req.CoSupervisorIDs,
		Note:            req.Note,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, created)
	return nil
}

func (h *GroupRequestHandler) Get(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	req, approvals, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return err
	}

	participant := false
	for _, a := range approvals {
		if a.UserID == userID {
			participant = true
			break
		}
	}
	if !participant {
		return &service.Error{Kind: service.KindNotFound, Op: "GroupRequestHandler.Get", Message: "group request not found"}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request":   req,
		"approvals": approvals,
		"tally":     domain.Tally(approvals),
	})
	return nil
}

type respondGroupRequest struct {
	Decision domain.MemberApprovalStatus `json:"decision"`
}

func (h *GroupRequestHandler) Respond(w http.ResponseWriter, r *http.Request) error {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req respondGroupRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	resp, err := h.svc.Respond(r.Context(), id, userID, req.Decision)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}
