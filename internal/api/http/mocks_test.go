package http

import (
	"context"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

type mockInvitations struct{ mock.Mock }

func (m *mockInvitations) Send(ctx context.Context, groupID, invitedUserID, invitedByID int32) (*domain.Invitation, bool, error) {
	args := m.Called(ctx, groupID, invitedUserID, invitedByID)
	inv, _ := args.Get(0).(*domain.Invitation)
	return inv, args.Bool(1), args.Error(2)
}

func (m *mockInvitations) Accept(ctx context.Context, invitationID, actorID int32) (*domain.Invitation, error) {
	args := m.Called(ctx, invitationID, actorID)
	inv, _ := args.Get(0).(*domain.Invitation)
	return inv, args.Error(1)
}

func (m *mockInvitations) Reject(ctx context.Context, invitationID, actorID int32) (*domain.Invitation, error) {
	args := m.Called(ctx, invitationID, actorID)
	inv, _ := args.Get(0).(*domain.Invitation)
	return inv, args.Error(1)
}

func (m *mockInvitations) ListForUser(ctx context.Context, userID int32, status domain.InvitationStatus) ([]domain.Invitation, error) {
	args := m.Called(ctx, userID, status)
	invs, _ := args.Get(0).([]domain.Invitation)
	return invs, args.Error(1)
}

type mockGroupRequests struct{ mock.Mock }

func (m *mockGroupRequests) Submit(ctx context.Context, in service.SubmitGroupRequest) (*domain.GroupCreationRequest, error) {
	args := m.Called(ctx, in)
	req, _ := args.Get(0).(*domain.GroupCreationRequest)
	return req, args.Error(1)
}

func (m *mockGroupRequests) Respond(ctx context.Context, approvalID, actorID int32, decision domain.MemberApprovalStatus) (*service.GroupResponse, error) {
	args := m.Called(ctx, approvalID, actorID, decision)
	resp, _ := args.Get(0).(*service.GroupResponse)
	return resp, args.Error(1)
}

func (m *mockGroupRequests) TryFinalize(ctx context.Context, requestID int32) (bool, error) {
	args := m.Called(ctx, requestID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGroupRequests) Get(ctx context.Context, requestID int32) (*domain.GroupCreationRequest, []domain.GroupMemberApproval, error) {
	args := m.Called(ctx, requestID)
	req, _ := args.Get(0).(*domain.GroupCreationRequest)
	approvals, _ := args.Get(1).([]domain.GroupMemberApproval)
	return req, approvals, args.Error(2)
}

type mockApprovals struct{ mock.Mock }

func (m *mockApprovals) Create(ctx context.Context, in service.CreateApproval) (*domain.ApprovalRequest, error) {
	args := m.Called(ctx, in)
	req, _ := args.Get(0).(*domain.ApprovalRequest)
	return req, args.Error(1)
}

func (m *mockApprovals) decide(method string, ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error) {
	args := m.MethodCalled(method, ctx, approvalID, actorID, comments)
	req, _ := args.Get(0).(*domain.ApprovalRequest)
	return req, args.Error(1)
}

func (m *mockApprovals) Approve(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error) {
	return m.decide("Approve", ctx, approvalID, actorID, comments)
}

func (m *mockApprovals) Reject(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error) {
	return m.decide("Reject", ctx, approvalID, actorID, comments)
}

func (m *mockApprovals) ReturnForRevision(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error) {
	return m.decide("ReturnForRevision", ctx, approvalID, actorID, comments)
}

func (m *mockApprovals) ListPendingForApprover(ctx context.Context, approverID int32) ([]domain.ApprovalRequest, error) {
	args := m.Called(ctx, approverID)
	reqs, _ := args.Get(0).([]domain.ApprovalRequest)
	return reqs, args.Error(1)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) Dispatch(ctx context.Context, recipientID int32, t domain.NotificationType, title, message string, related domain.RelatedEntity) *domain.Notification {
	args := m.Called(ctx, recipientID, t, title, message, related)
	n, _ := args.Get(0).(*domain.Notification)
	return n
}

func (m *mockNotifications) List(ctx context.Context, userID int32, unreadOnly bool, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	notes, _ := args.Get(0).([]domain.Notification)
	return notes, args.Error(1)
}

func (m *mockNotifications) ListUnreadByType(ctx context.Context, userID int32, t domain.NotificationType) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, t)
	notes, _ := args.Get(0).([]domain.Notification)
	return notes, args.Error(1)
}

func (m *mockNotifications) UnreadCount(ctx context.Context, userID int32) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotifications) Stats(ctx context.Context, userID int32) (*domain.NotificationStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(*domain.NotificationStats)
	return stats, args.Error(1)
}

func (m *mockNotifications) MarkRead(ctx context.Context, id, userID int32) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotifications) MarkAllRead(ctx context.Context, userID int32) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotifications) Delete(ctx context.Context, id, userID int32) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotifications) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(int64), args.Error(1)
}
