package model

import "time"

const (
	RoleStandard = 1
	RoleElevated = 2
)

type User struct {
	ID                  int64      `json:"user_id"`
	Username            string     `json:"username"`
	FullName            string     `json:"full_name"`
	Email               string     `json:"email"`
	HashedPassword      string     `json:"-"`
	RoleID              int        `json:"role_id"`
	Shift               string     `json:"shift"`
	AvatarURL           *string    `json:"avatar_url,omitempty"`
	RegisteredAt        time.Time  `json:"registered_at"`
	CompletedTasksCount int        `json:"completed_tasks_count"`
	TotalTasksCount     int        `json:"total_tasks_count"`
	EditedArticlesCount int        `json:"edited_articles_count"`
	IsDeleted           bool       `json:"-"`
	DeletedAt           *time.Time `json:"-"`
}

type UserFilter struct {
	Username *string
	FullName *string
	Email    *string
	RoleID   *int
}

type UserUpdate struct {
	Username *string
	FullName *string
	Email    *string
	Shift    *string
}
