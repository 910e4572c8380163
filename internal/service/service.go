package service

import (
	"context"

	"gpms-backend/internal/domain"
)

type NotificationService interface {
	// Dispatch stores a notification and delivers it best-effort. It never
	// fails; a nil result means the record could not be stored.
	Dispatch(ctx context.Context, recipientID int32, t domain.NotificationType, title, message string, related domain.RelatedEntity) *domain.Notification
	List(ctx context.Context, userID int32, unreadOnly bool, limit int32) ([]domain.Notification, error)
	ListUnreadByType(ctx context.Context, userID int32, t domain.NotificationType) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID int32) (int64, error)
	Stats(ctx context.Context, userID int32) (*domain.NotificationStats, error)
	MarkRead(ctx context.Context, id, userID int32) (bool, error)
	MarkAllRead(ctx context.Context, userID int32) (int64, error)
	Delete(ctx context.Context, id, userID int32) (bool, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

type InvitationService interface {
	Send(ctx context.Context, groupID, invitedUserID, invitedByID int32) (*domain.Invitation, bool, error)
	Accept(ctx context.Context, invitationID, actorID int32) (*domain.Invitation, error)
	Reject(ctx context.Context, invitationID, actorID int32) (*domain.Invitation, error)
	ListForUser(ctx context.Context, userID int32, status domain.InvitationStatus) ([]domain.Invitation, error)
}

type GroupRequestService interface {
	Submit(ctx context.Context, in SubmitGroupRequest) (*domain.GroupCreationRequest, error)
	Respond(ctx context.Context, approvalID, actorID int32, decision domain.MemberApprovalStatus) (*GroupResponse, error)
	TryFinalize(ctx context.Context, requestID int32) (bool, error)
	Get(ctx context.Context, requestID int32) (*domain.GroupCreationRequest, []domain.GroupMemberApproval, error)
}

type ApprovalService interface {
	Create(ctx context.Context, in CreateApproval) (*domain.ApprovalRequest, error)
	Approve(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error)
	Reject(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error)
	ReturnForRevision(ctx context.Context, approvalID, actorID int32, comments string) (*domain.ApprovalRequest, error)
	ListPendingForApprover(ctx context.Context, approverID int32) ([]domain.ApprovalRequest, error)
}

// SweepService holds the timer-driven maintenance passes. Every method is
// safe to call repeatedly.
type SweepService interface {
	RemindExpiring(ctx context.Context) (int, error)
	ExpireStale(ctx context.Context) (int, error)
	PurgeOld(ctx context.Context) (*PurgeResult, error)
	RemindStale(ctx context.Context) (int, error)
}
