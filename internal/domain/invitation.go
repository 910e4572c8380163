package domain

import "time"

// DefaultInvitationTTL is how long an invitation stays answerable.
const DefaultInvitationTTL = 48 * time.Hour

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// IsTerminal reports whether no further user transition is possible.
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationStatusPending
}

type Invitation struct {
	ID            int32            `json:"id"`
	GroupID       int32            `json:"group_id"`
	InvitedUserID int32            `json:"invited_user_id"`
	InvitedByID   int32            `json:"invited_by_id"`
	Status        InvitationStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
}

// IsExpired reports whether the deadline has passed at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
