package domain

import "time"

type Role string

const (
	RoleStudent             Role = "student"
	RoleSupervisor          Role = "supervisor"
	RoleCoSupervisor        Role = "co_supervisor"
	RoleDepartmentHead      Role = "department_head"
	RoleDean                Role = "dean"
	RoleUniversityPresident Role = "university_president"
	RoleSystemManager       Role = "system_manager"
	RoleExternalCompany     Role = "external_company"
)

type User struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AcademicAffiliation places a user inside the organizational hierarchy.
// The most recent affiliation (by StartDate) is the one in effect.
type AcademicAffiliation struct {
	ID           int32     `json:"id"`
	UserID       int32     `json:"user_id"`
	UniversityID int32     `json:"university_id"`
	CollegeID    *int32    `json:"college_id"`
	DepartmentID *int32    `json:"department_id"`
	StartDate    time.Time `json:"start_date"`
}
