package model

import "time"

// RetentionWindow - срок, в течение которого удаленную сущность можно вернуть
const RetentionWindow = 7 * 24 * time.Hour

// Restorable reports whether a soft-deleted entity can still be restored at
// the given moment. Entities that are not deleted (or carry no deletion
// timestamp) are never restorable.
func Restorable(isDeleted bool, deletedAt *time.Time, now time.Time) bool {
	if !isDeleted || deletedAt == nil {
		return false
	}
	return !deletedAt.Before(now.Add(-RetentionWindow))
}
