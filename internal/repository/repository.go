package repository

import (
	"context"
	"errors"
	"time"

	"gpms-backend/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record changed concurrently")
	ErrDuplicate = errors.New("record already exists")
)

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []int32) ([]domain.User, error)
	LatestAffiliation(ctx context.Context, userID int32) (*domain.AcademicAffiliation, error)
}

type OrganizationRepository interface {
	GetUniversity(ctx context.Context, id int32) (*domain.University, error)
	GetCollege(ctx context.Context, id int32) (*domain.College, error)
	GetDepartment(ctx context.Context, id int32) (*domain.Department, error)
}

type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id int32) (*domain.Group, error)
	// AddMember is idempotent: an existing membership is left untouched.
	AddMember(ctx context.Context, member *domain.GroupMember) error
	AddSupervisor(ctx context.Context, sup *domain.GroupSupervisor) error
	ListMembers(ctx context.Context, groupID int32) ([]domain.GroupMember, error)
	ListSupervisors(ctx context.Context, groupID int32) ([]domain.GroupSupervisor, error)
}

type ProjectRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Project, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	GetByID(ctx context.Context, id int32) (*domain.Invitation, error)
	GetByPair(ctx context.Context, groupID, userID int32) (*domain.Invitation, error)
	ListByUser(ctx context.Context, userID int32, status domain.InvitationStatus) ([]domain.Invitation, error)
	// LockByUser returns every invitation held by the user and locks them
	// for the rest of the transaction, ordered by id.
	LockByUser(ctx context.Context, userID int32) ([]domain.Invitation, error)
	// Transition moves an invitation from one status to another and fails
	// with ErrConflict if the row is no longer in the from status.
	Transition(ctx context.Context, id int32, from, to domain.InvitationStatus, respondedAt time.Time) error
	ListExpiring(ctx context.Context, from, until time.Time) ([]domain.Invitation, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Invitation, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Invitation, error)
	DeleteTerminalRespondedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type GroupRequestRepository interface {
	Create(ctx context.Context, req *domain.GroupCreationRequest) error
	GetByID(ctx context.Context, id int32) (*domain.GroupCreationRequest, error)
	// GetForUpdate loads the request and holds it until the transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.GroupCreationRequest, error)
	MarkFinalized(ctx context.Context, id, groupID int32) error
	MarkAbandoned(ctx context.Context, id int32) error

	CreateApproval(ctx context.Context, a *domain.GroupMemberApproval) error
	GetApproval(ctx context.Context, id int32) (*domain.GroupMemberApproval, error)
	ListApprovals(ctx context.Context, requestID int32) ([]domain.GroupMemberApproval, error)
	RespondApproval(ctx context.Context, id int32, status domain.MemberApprovalStatus, respondedAt time.Time) error
}

type ApprovalRepository interface {
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	GetByID(ctx context.Context, id int32) (*domain.ApprovalRequest, error)
	// Advance moves a pending request from fromStep to the next step.
	Advance(ctx context.Context, id, fromStep, nextApproverID int32, comments string, at time.Time) error
	// Close ends a pending request at fromStep with a terminal status.
	Close(ctx context.Context, id, fromStep int32, status domain.ApprovalStatus, comments string, at time.Time) error
	ListPendingByApprover(ctx context.Context, approverID int32) ([]domain.ApprovalRequest, error)
	ListPendingUpdatedBefore(ctx context.Context, cutoff time.Time) ([]domain.ApprovalRequest, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID int32, unreadOnly bool, limit int32) ([]domain.Notification, error)
	ListUnreadByType(ctx context.Context, userID int32, t domain.NotificationType) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID int32) (int64, error)
	Stats(ctx context.Context, userID int32) (*domain.NotificationStats, error)
	MarkAsRead(ctx context.Context, id, userID int32, at time.Time) (bool, error)
	MarkAllAsRead(ctx context.Context, userID int32, at time.Time) (int64, error)
	MarkEmailSent(ctx context.Context, id int32) error
	Delete(ctx context.Context, id, userID int32) (bool, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// ExistsSince reports whether a notification of type t for the same
	// recipient and related entity was created at or after since.
	ExistsSince(ctx context.Context, recipientID int32, t domain.NotificationType, related domain.RelatedEntity, since time.Time) (bool, error)
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Users         UserRepository
	Orgs          OrganizationRepository
	Groups        GroupRepository
	Projects      ProjectRepository
	Invitations   InvitationRepository
	GroupRequests GroupRequestRepository
	Approvals     ApprovalRepository
	Notifications NotificationRepository
}

// Store is the unit of persistence used by the workflow services.
type Store interface {
	Repos() Repos
	// WithinTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
