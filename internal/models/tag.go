// Package models provides data model definitions for the RecorderGear sync backend.
package models

import "time"

// Tag represents a user-defined label for organizing recordings.
// Tag names are unique per user (schema constraint).
type Tag struct {
	ID        UUID   `db:"id" json:"id"`
	UserID    UUID   `db:"user_id" json:"user_id"`
	Name      string `db:"name" json:"name"`
	Color     string `db:"color" json:"color"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	DeletedAt *int64 `db:"deleted_at" json:"deleted_at,omitempty"`
}

// TableName returns the table name for Tag.
func (Tag) TableName() string {
	return "tags"
}

// IsDeleted reports whether the tag is soft-deleted.
func (t *Tag) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now().UnixMilli()
}
