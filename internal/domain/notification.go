package domain

import "time"

type NotificationType string

const (
	NotificationInvitation          NotificationType = "invitation"
	NotificationInvitationAccepted  NotificationType = "invitation_accepted"
	NotificationInvitationRejected  NotificationType = "invitation_rejected"
	NotificationInvitationWithdrawn NotificationType = "invitation_withdrawn"
	NotificationInvitationExpiring  NotificationType = "invitation_expiring"
	NotificationInvitationExpired   NotificationType = "invitation_expired"
	NotificationGroupRequest        NotificationType = "group_request"
	NotificationGroupCreated        NotificationType = "group_created"
	NotificationGroupAbandoned      NotificationType = "group_abandoned"
	NotificationApprovalRequest     NotificationType = "approval_request"
	NotificationApprovalApproved    NotificationType = "approval_approved"
	NotificationApprovalRejected    NotificationType = "approval_rejected"
	NotificationApprovalReturned    NotificationType = "approval_returned"
	NotificationReminder            NotificationType = "reminder"
	NotificationSystem              NotificationType = "system"
	NotificationMessage             NotificationType = "message"
)

type RelatedKind string

const (
	RelatedNone     RelatedKind = ""
	RelatedGroup    RelatedKind = "group"
	RelatedProject  RelatedKind = "project"
	RelatedUser     RelatedKind = "user"
	RelatedApproval RelatedKind = "approval"
	RelatedRequest  RelatedKind = "group_request"
)

// RelatedEntity is the single optional entity a notification points at.
type RelatedEntity struct {
	Kind RelatedKind `json:"kind,omitempty"`
	ID   int32       `json:"id,omitempty"`
}

func NoRelated() RelatedEntity                 { return RelatedEntity{} }
func RelatedToGroup(id int32) RelatedEntity    { return RelatedEntity{Kind: RelatedGroup, ID: id} }
func RelatedToProject(id int32) RelatedEntity  { return RelatedEntity{Kind: RelatedProject, ID: id} }
func RelatedToUser(id int32) RelatedEntity     { return RelatedEntity{Kind: RelatedUser, ID: id} }
func RelatedToApproval(id int32) RelatedEntity { return RelatedEntity{Kind: RelatedApproval, ID: id} }
func RelatedToRequest(id int32) RelatedEntity  { return RelatedEntity{Kind: RelatedRequest, ID: id} }

func (r RelatedEntity) IsZero() bool { return r.Kind == RelatedNone }

type Notification struct {
	ID          int32            `json:"id"`
	RecipientID int32            `json:"recipient_id"`
	Type        NotificationType `json:"notification_type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Related     RelatedEntity    `json:"related"`
	IsRead      bool             `json:"is_read"`
	IsSentEmail bool             `json:"is_sent_email"`
	CreatedAt   time.Time        `json:"created_at"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
}

// NotificationStats summarizes a recipient's inbox.
type NotificationStats struct {
	Total        int64                      `json:"total"`
	Unread       int64                      `json:"unread"`
	UnreadByType map[NotificationType]int64 `json:"unread_by_type"`
}
