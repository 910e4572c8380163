package domain

import "time"

type ProjectType string

const (
	ProjectTypeInternal       ProjectType = "internal"
	ProjectTypeGovernment     ProjectType = "government"
	ProjectTypePrivateCompany ProjectType = "private_company"
)

type Project struct {
	ID        int32       `json:"id"`
	Title     string      `json:"title"`
	Type      ProjectType `json:"type"`
	GroupID   *int32      `json:"group_id"`
	CollegeID *int32      `json:"college_id"`
	CreatedAt time.Time   `json:"created_at"`
}
