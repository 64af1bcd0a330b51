// Package syncfeed derives the per-user change feed that client replicas
// pull to converge on the authoritative state of recordings, folders, tags
// and their relationships.
//
// Nothing in this package writes: each pull reads the entity tables under a
// fixed snapshot bound, merges the five families into one deterministic
// order, and hands back an opaque resume cursor. Rows become visible purely
// through their updated_at column, which the write path bumps on every
// mutation.
package syncfeed

import (
	"encoding/json"
	"strings"
)

// EntityType identifies one of the five synchronized entity families.
type EntityType string

const (
	EntityRecording       EntityType = "recording"
	EntityFolder          EntityType = "folder"
	EntityTag             EntityType = "tag"
	EntityRecordingTag    EntityType = "recording_tag"
	EntityRecordingFolder EntityType = "recording_folder"
)

// Fixed per-family rank, used only to break ties between families sharing
// an updated_at millisecond. The values are arbitrary but must never change:
// they are baked into client-held cursors.
const (
	PriorityRecording       int64 = 1
	PriorityFolder          int64 = 2
	PriorityTag             int64 = 3
	PriorityRecordingTag    int64 = 4
	PriorityRecordingFolder int64 = 5
)

// Op is the kind of change delivered to a replica.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// OrderKey is the shared orderable capability of a change row. The merge
// stage and the cursor operate only on this key, never on family-specific
// fields.
type OrderKey struct {
	Timestamp int64  // updated_at in ms
	Priority  int64  // family rank
	Key       string // the row's natural tie key (id or composite id)
}

// Compare returns -1, 0 or 1 ordering keys lexicographically by
// (Timestamp, Priority, Key).
func (k OrderKey) Compare(other OrderKey) int {
	if k.Timestamp != other.Timestamp {
		if k.Timestamp < other.Timestamp {
			return -1
		}
		return 1
	}
	if k.Priority != other.Priority {
		if k.Priority < other.Priority {
			return -1
		}
		return 1
	}
	return strings.Compare(k.Key, other.Key)
}

// ChangeRow is the internal representation of one changed entity, produced
// by a source reader. Rows are never stored; they are derived per request.
type ChangeRow struct {
	Type        EntityType
	Op          Op
	ID          string // entity id, or composite id for link rows
	UserID      string
	UpdatedAtMs int64
	Priority    int64

	// Payload is the current field snapshot for entity rows; nil for pure
	// relationship rows that only carry ids.
	Payload json.RawMessage

	// Relational ids, set only where applicable to the family.
	RecordingID string
	TagID       string
	FolderID    string
	ParentID    string
}

// OrderKey returns the row's position in the global feed order.
func (r *ChangeRow) OrderKey() OrderKey {
	return OrderKey{Timestamp: r.UpdatedAtMs, Priority: r.Priority, Key: r.ID}
}

// ChangeItem is the wire-level projection of a ChangeRow.
type ChangeItem struct {
	Type      string          `json:"type"`
	Op        string          `json:"op"`
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	UpdatedAt string          `json:"updatedAt"` // ISO-8601 with ms precision
	Data      json.RawMessage `json:"data,omitempty"`

	RecordingID string `json:"recordingId,omitempty"`
	TagID       string `json:"tagId,omitempty"`
	FolderID    string `json:"folderId,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
}
