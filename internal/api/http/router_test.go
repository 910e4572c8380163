package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/security"
	"gpms-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	invitations   *mockInvitations
	groupRequests *mockGroupRequests
	approvals     *mockApprovals
	notifications *mockNotifications
	tokens        security.TokenManager
	handler       http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		invitations:   new(mockInvitations),
		groupRequests: new(mockGroupRequests),
		approvals:     new(mockApprovals),
		notifications: new(mockNotifications),
		tokens:        security.NewTokenManager(testSecret),
	}
	ts.handler = NewRouter(Services{
		Invitations:   ts.invitations,
		GroupRequests: ts.groupRequests,
		Approvals:     ts.approvals,
		Notifications: ts.notifications,
	}, ts.tokens)
	return ts
}

func (ts *testServer) do(t *testing.T, userID int32, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != 0 {
		token, err := ts.tokens.GenerateAccessToken(userID, "", []string{"student"})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, 0, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, 0, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, 0, http.MethodGet, "/api/v1/invitations", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invitations", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec).TraceID)
}

func TestInvitationHandler_Send(t *testing.T) {
	ts := newTestServer()
	inv := &domain.Invitation{ID: 9, GroupID: 3, InvitedUserID: 12, InvitedByID: 7, Status: domain.InvitationStatusPending}
	ts.invitations.On("Send", mock.Anything, int32(3), int32(12), int32(7)).Return(inv, true, nil).Once()
	ts.invitations.On("Send", mock.Anything, int32(3), int32(12), int32(7)).Return(inv, false, nil).Once()

	rec := ts.do(t, 7, http.MethodPost, "/api/v1/invitations", `{"group_id":3,"invited_user_id":12}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, 7, http.MethodPost, "/api/v1/invitations", `{"group_id":3,"invited_user_id":12}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	var got domain.Invitation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int32(9), got.ID)

	rec = ts.do(t, 7, http.MethodPost, "/api/v1/invitations", `{"group_id":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, 7, http.MethodPost, "/api/v1/invitations", `{"group":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.invitations.AssertExpectations(t)
}

func TestInvitationHandler_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "expired", err: &service.Error{Kind: service.KindExpired, Message: "invitation has expired"}, status: http.StatusGone, code: "EXPIRED"},
		{name: "not found", err: &service.Error{Kind: service.KindNotFound, Message: "invitation not found"}, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "invalid state", err: &service.Error{Kind: service.KindInvalidState, Message: "invitation is accepted"}, status: http.StatusConflict, code: "INVALID_STATE"},
		{name: "unauthorized", err: &service.Error{Kind: service.KindUnauthorized, Message: "not allowed"}, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "transaction failed", err: &service.Error{Kind: service.KindTransactionFailed, Message: "transaction aborted", Err: errors.New("pq: deadlock")}, status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.invitations.On("Accept", mock.Anything, int32(5), int32(12)).Return(nil, tt.err).Once()

			rec := ts.do(t, 12, http.MethodPost, "/api/v1/invitations/5/accept", "")
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Message, "deadlock")
		})
	}
}

func TestInvitationHandler_ListFilter(t *testing.T) {
	ts := newTestServer()
	ts.invitations.On("ListForUser", mock.Anything, int32(12), domain.InvitationStatusPending).Return([]domain.Invitation{{ID: 1}}, nil).Once()

	rec := ts.do(t, 12, http.MethodGet, "/api/v1/invitations?status=pending", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"invitations"`)

	rec = ts.do(t, 12, http.MethodGet, "/api/v1/invitations?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.invitations.AssertExpectations(t)
}

func TestGroupRequestHandler(t *testing.T) {
	ts := newTestServer()
	req := &domain.GroupCreationRequest{ID: 4, GroupName: "Irrigation", CreatorID: 7, Status: domain.GroupRequestStatusOpen}
	approvals := []domain.GroupMemberApproval{
		{ID: 1, RequestID: 4, UserID: 7, Role: domain.MemberRoleStudent, Status: domain.MemberApprovalAccepted},
		{ID: 2, RequestID: 4, UserID: 8, Role: domain.MemberRoleStudent, Status: domain.MemberApprovalPending},
	}
	ts.groupRequests.On("Submit", mock.Anything, mock.MatchedBy(func(in service.SubmitGroupRequest) bool {
		return in.CreatorID == 7 && in.GroupName == "Irrigation" && len(in.StudentIDs) == 2
	})).Return(req, nil).Once()
	ts.groupRequests.On("Get", mock.Anything, int32(4)).Return(req, approvals, nil)
	ts.groupRequests.On("Respond", mock.Anything, int32(2), int32(8), domain.MemberApprovalAccepted).
		Return(&service.GroupResponse{Finalized: true, Message: "accepted"}, nil).Once()

	rec := ts.do(t, 7, http.MethodPost, "/api/v1/group-requests",
		`{"group_name":"Irrigation","department_id":1,"college_id":1,"student_ids":[7,8]}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, 8, http.MethodGet, "/api/v1/group-requests/4", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accepted":1`)

	rec = ts.do(t, 99, http.MethodGet, "/api/v1/group-requests/4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, 8, http.MethodPost, "/api/v1/group-approvals/2/respond", `{"decision":"accepted"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"finalized":true`)
	ts.groupRequests.AssertExpectations(t)
}

func TestApprovalHandler(t *testing.T) {
	ts := newTestServer()
	groupID := int32(3)
	ts.approvals.On("Create", mock.Anything, service.CreateApproval{
		Type: domain.ApprovalTypeProjectProposal, RequestedByID: 7, GroupID: &groupID,
	}).Return(&domain.ApprovalRequest{ID: 11, Status: domain.ApprovalStatusPending}, nil).Once()
	ts.approvals.On("Approve", mock.Anything, int32(11), int32(20), "").
		Return(&domain.ApprovalRequest{ID: 11, Step: 2, Status: domain.ApprovalStatusPending}, nil).Once()
	ts.approvals.On("ReturnForRevision", mock.Anything, int32(11), int32(21), "add a timeline").
		Return(nil, &service.Error{Kind: service.KindInvalidState, Message: "approval request is approved"}).Once()

	rec := ts.do(t, 7, http.MethodPost, "/api/v1/approvals", `{"approval_type":"project_proposal","group_id":3}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, 20, http.MethodPost, "/api/v1/approvals/11/approve", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, 21, http.MethodPost, "/api/v1/approvals/11/return", `{"comments":"add a timeline"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	ts.approvals.AssertExpectations(t)
}

func TestNotificationHandler(t *testing.T) {
	ts := newTestServer()
	ts.notifications.On("List", mock.Anything, int32(7), true, int32(20)).Return([]domain.Notification{}, nil).Once()
	ts.notifications.On("UnreadCount", mock.Anything, int32(7)).Return(int64(3), nil).Once()
	ts.notifications.On("MarkRead", mock.Anything, int32(5), int32(7)).Return(false, nil).Once()
	ts.notifications.On("Delete", mock.Anything, int32(6), int32(7)).Return(true, nil).Once()

	rec := ts.do(t, 7, http.MethodGet, "/api/v1/notifications?unread_only=true&limit=20", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"notifications":[]}`, rec.Body.String())

	rec = ts.do(t, 7, http.MethodGet, "/api/v1/notifications/unread-count", "")
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())

	rec = ts.do(t, 7, http.MethodPost, "/api/v1/notifications/5/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, 7, http.MethodDelete, "/api/v1/notifications/6", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, 7, http.MethodGet, "/api/v1/notifications?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, 7, http.MethodGet, "/ws/notifications", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	ts.notifications.AssertExpectations(t)
}
