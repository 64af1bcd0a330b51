// Package models provides data model definitions for the RecorderGear sync backend.
package models

import "time"

// Folder represents a user-defined container for recordings. Folders form a
// tree through ParentID; depth rules are enforced by the write path, not here.
type Folder struct {
	ID        UUID   `db:"id" json:"id"`
	UserID    UUID   `db:"user_id" json:"user_id"`
	Name      string `db:"name" json:"name"`
	ParentID  *UUID  `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	DeletedAt *int64 `db:"deleted_at" json:"deleted_at,omitempty"`
}

// TableName returns the table name for Folder.
func (Folder) TableName() string {
	return "folders"
}

// IsDeleted reports whether the folder is soft-deleted.
func (f *Folder) IsDeleted() bool {
	return f.DeletedAt != nil
}

// Touch updates the UpdatedAt timestamp.
func (f *Folder) Touch() {
	f.UpdatedAt = time.Now().UnixMilli()
}
