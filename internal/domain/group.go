package domain

import "time"

type Group struct {
	ID           int32     `json:"id"`
	Name         string    `json:"name"`
	DepartmentID *int32    `json:"department_id"`
	CollegeID    *int32    `json:"college_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type GroupMember struct {
	GroupID  int32     `json:"group_id"`
	UserID   int32     `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type SupervisorType string

const (
	SupervisorTypePrimary SupervisorType = "supervisor"
	SupervisorTypeCo      SupervisorType = "co_supervisor"
)

type GroupSupervisor struct {
	ID      int32          `json:"id"`
	GroupID int32          `json:"group_id"`
	UserID  int32          `json:"user_id"`
	Type    SupervisorType `json:"type"`
}
