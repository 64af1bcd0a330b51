// Package models provides data model definitions for the RecorderGear sync backend.
package models

// RecordingTag links a recording to a tag. The pair (RecordingID, TagID) is
// the natural key. Removing a tag from a recording soft-deletes the link and
// bumps UpdatedAt so the removal reaches replicas.
type RecordingTag struct {
	RecordingID UUID   `db:"recording_id" json:"recording_id"`
	TagID       UUID   `db:"tag_id" json:"tag_id"`
	UserID      UUID   `db:"user_id" json:"user_id"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
	UpdatedAt   int64  `db:"updated_at" json:"updated_at"`
	DeletedAt   *int64 `db:"deleted_at" json:"deleted_at,omitempty"`
}

// TableName returns the table name for RecordingTag.
func (RecordingTag) TableName() string {
	return "recording_tags"
}

// IsDeleted reports whether the link is soft-deleted.
func (rt *RecordingTag) IsDeleted() bool {
	return rt.DeletedAt != nil
}

// RecordingFolder places a recording in a folder. A recording occupies at
// most one folder, so RecordingID alone is the key and reassignment is an
// in-place update. There is no delete marker: unassignment is represented by
// row absence and is inferred by replicas rather than announced.
type RecordingFolder struct {
	RecordingID UUID  `db:"recording_id" json:"recording_id"`
	FolderID    UUID  `db:"folder_id" json:"folder_id"`
	UserID      UUID  `db:"user_id" json:"user_id"`
	CreatedAt   int64 `db:"created_at" json:"created_at"`
	UpdatedAt   int64 `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for RecordingFolder.
func (RecordingFolder) TableName() string {
	return "recording_folders"
}
