package domain

import "time"

type ApprovalType string

const (
	ApprovalTypeProjectProposal ApprovalType = "project_proposal"
	ApprovalTypeStudentTransfer ApprovalType = "student_transfer"
	ApprovalTypeGroupTransfer   ApprovalType = "group_transfer"
	ApprovalTypeExternalProject ApprovalType = "external_project"
	ApprovalTypeCoSupervisor    ApprovalType = "co_supervisor"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusReturned ApprovalStatus = "returned"
)

type SequenceType string

const (
	SequenceSingleDepartment SequenceType = "single_department"
	SequenceMultiDepartment  SequenceType = "multi_department"
	SequenceMultiCollege     SequenceType = "multi_college"
	SequenceExternal         SequenceType = "external"
	SequenceGovernment       SequenceType = "government"
)

// ApproverLevel identifies who signs off at a step of the chain.
type ApproverLevel int32

const (
	LevelSupervisor     ApproverLevel = 1
	LevelDepartmentHead ApproverLevel = 2
	LevelDean           ApproverLevel = 3
	LevelPresident      ApproverLevel = 4
)

func (l ApproverLevel) String() string {
	switch l {
	case LevelSupervisor:
		return "supervisor"
	case LevelDepartmentHead:
		return "department head"
	case LevelDean:
		return "dean"
	case LevelPresident:
		return "university president"
	default:
		return "unknown"
	}
}

// ApprovalRequest is a proposal moving through a sequential sign-off chain.
// Step is the 1-based position in Levels; Levels is fixed at creation.
type ApprovalRequest struct {
	ID                int32           `json:"id"`
	Type              ApprovalType    `json:"approval_type"`
	GroupID           *int32          `json:"group_id,omitempty"`
	ProjectID         *int32          `json:"project_id,omitempty"`
	RequestedByID     int32           `json:"requested_by_id"`
	CurrentApproverID int32           `json:"current_approver_id"`
	Step              int32           `json:"approval_level"`
	SequenceType      SequenceType    `json:"sequence_type"`
	Levels            []ApproverLevel `json:"levels"`
	Status            ApprovalStatus  `json:"status"`
	Comments          string          `json:"comments"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
}

// IsFinalStep reports whether the current step is the last in the chain.
func (a *ApprovalRequest) IsFinalStep() bool {
	return int(a.Step) >= len(a.Levels)
}

// LevelAt returns the approver level for a 1-based step.
func (a *ApprovalRequest) LevelAt(step int32) (ApproverLevel, bool) {
	if step < 1 || int(step) > len(a.Levels) {
		return 0, false
	}
	return a.Levels[step-1], true
}
