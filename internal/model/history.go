package model

import "time"

// Event - тип записи в журнале изменений
type Event string

const (
	EventCreated    Event = "CREATED"
	EventUpdated    Event = "UPDATED"
	EventDeleted    Event = "DELETED"
	EventRestored   Event = "RESTORED"
	EventReassigned Event = "REASSIGNED"
	EventImageAdded Event = "IMAGE_ADDED"
)

// FieldChange holds both sides of a single field diff. Old is nil for
// snapshots taken on create/restore, New is nil for delete snapshots.
type FieldChange struct {
	Old any `json:"old,omitempty"`
	New any `json:"new,omitempty"`
}

type Changes map[string]FieldChange

type TaskHistory struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Event     Event     `json:"event"`
	Comment   *string   `json:"comment,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
	Changes   Changes   `json:"changes,omitempty"`
}

type ArticleHistory struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article_id"`
	UserID    int64     `json:"user_id"`
	Event     Event     `json:"event"`
	ChangedAt time.Time `json:"changed_at"`
	Changes   Changes   `json:"changes,omitempty"`
}
