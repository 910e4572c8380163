package domain

type University struct {
	ID              int32  `json:"id"`
	Name            string `json:"name"`
	PresidentUserID *int32 `json:"president_user_id"`
}

type College struct {
	ID           int32  `json:"id"`
	UniversityID int32  `json:"university_id"`
	Name         string `json:"name"`
	DeanUserID   *int32 `json:"dean_user_id"`
}

type Department struct {
	ID         int32  `json:"id"`
	CollegeID  int32  `json:"college_id"`
	Name       string `json:"name"`
	HeadUserID *int32 `json:"head_user_id"`
}
