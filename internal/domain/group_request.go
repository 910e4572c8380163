package domain

import "time"

type GroupRequestStatus string

const (
	GroupRequestStatusOpen      GroupRequestStatus = "open"
	GroupRequestStatusFinalized GroupRequestStatus = "finalized"
	GroupRequestStatusAbandoned GroupRequestStatus = "abandoned"
)

// GroupCreationRequest is a proposed roster awaiting unanimous confirmation.
type GroupCreationRequest struct {
	ID               int32              `json:"id"`
	GroupName        string             `json:"group_name"`
	CreatorID        int32              `json:"creator_id"`
	DepartmentID     int32              `json:"department_id"`
	CollegeID        int32              `json:"college_id"`
	Note             string             `json:"note"`
	Status           GroupRequestStatus `json:"status"`
	IsFullyConfirmed bool               `json:"is_fully_confirmed"`
	GroupID          *int32             `json:"group_id,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

type MemberRole string

const (
	MemberRoleStudent      MemberRole = "student"
	MemberRoleSupervisor   MemberRole = "supervisor"
	MemberRoleCoSupervisor MemberRole = "co_supervisor"
)

type MemberApprovalStatus string

const (
	MemberApprovalPending  MemberApprovalStatus = "pending"
	MemberApprovalAccepted MemberApprovalStatus = "accepted"
	MemberApprovalRejected MemberApprovalStatus = "rejected"
)

type GroupMemberApproval struct {
	ID          int32                `json:"id"`
	RequestID   int32                `json:"request_id"`
	UserID      int32                `json:"user_id"`
	Role        MemberRole           `json:"role"`
	Status      MemberApprovalStatus `json:"status"`
	RespondedAt *time.Time           `json:"responded_at,omitempty"`
}

// ConfirmationTally counts approvals for a request.
type ConfirmationTally struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
}

// Complete reports whether every participant has accepted.
func (t ConfirmationTally) Complete() bool {
	return t.Total > 0 && t.Total == t.Accepted
}

// Tally counts accepted approvals among the given rows.
func Tally(approvals []GroupMemberApproval) ConfirmationTally {
	t := ConfirmationTally{Total: len(approvals)}
	for _, a := range approvals {
		if a.Status == MemberApprovalAccepted {
			t.Accepted++
		}
	}
	return t
}
