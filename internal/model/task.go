package model

import "time"

type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusActive, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	AuthorID    int64        `json:"author_id"`
	AssigneeID  int64        `json:"assignee_id"`
	ImagePaths  []string     `json:"image_paths"`
	IsDeleted   bool         `json:"is_deleted"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type TaskFilter struct {
	Status   *TaskStatus
	Priority *TaskPriority
}

// TaskUpdate - частичное обновление, nil значит "поле не трогаем"
type TaskUpdate struct {
	Title       *string
	Description *string
	AssigneeID  *int64
	DueDate     *time.Time
	Status      *TaskStatus
	Priority    *TaskPriority
}
