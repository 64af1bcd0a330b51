// Package models provides data model definitions for the RecorderGear sync backend.
//
// All timestamps are integer milliseconds since the Unix epoch. Soft deletes are
// represented by a non-nil DeletedAt; deleted rows stay in place so the change
// feed can announce the deletion to replicas.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// Recording represents a captured audio recording owned by a single user.
type Recording struct {
	ID         UUID   `db:"id" json:"id"`
	UserID     UUID   `db:"user_id" json:"user_id"`
	Title      string `db:"title" json:"title"`
	DurationMs int64  `db:"duration_ms" json:"duration_ms"`
	SizeBytes  int64  `db:"size_bytes" json:"size_bytes"`
	FileKey    string `db:"file_key" json:"file_key"` // object-storage key; URL signing is external
	CreatedAt  int64  `db:"created_at" json:"created_at"`
	UpdatedAt  int64  `db:"updated_at" json:"updated_at"`
	DeletedAt  *int64 `db:"deleted_at" json:"deleted_at,omitempty"`
}

// TableName returns the table name for Recording.
func (Recording) TableName() string {
	return "recordings"
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (r *Recording) UpdatedAtTime() time.Time {
	return time.UnixMilli(r.UpdatedAt)
}

// IsDeleted reports whether the recording is soft-deleted.
func (r *Recording) IsDeleted() bool {
	return r.DeletedAt != nil
}

// Touch updates the UpdatedAt timestamp. Every mutation that must reach
// replicas goes through here; the change feed keys off updated_at alone.
func (r *Recording) Touch() {
	r.UpdatedAt = time.Now().UnixMilli()
}
