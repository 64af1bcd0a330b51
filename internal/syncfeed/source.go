// Change source readers, one per entity family.
//
// Each reader applies the same selection predicate: rows of the requested
// user whose (updated_at, family priority, tie key) is strictly greater
// than the cursor's ordering key, and whose updated_at does not exceed the
// snapshot bound fixed at the start of the pull. Readers are independent;
// none depends on another's result.
package syncfeed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Source reads candidate changed rows for one entity family.
type Source interface {
	// Type identifies the family this source covers.
	Type() EntityType

	// ListChanges returns up to limit rows strictly after cur and at or
	// below boundMs, ordered by the feed order within the family.
	ListChanges(ctx context.Context, userID string, cur Cursor, boundMs int64, limit int) ([]ChangeRow, error)
}

// defaultSources wires the five family readers against the store.
func defaultSources(db *sql.DB) []Source {
	return []Source{
		&recordingSource{db: db},
		&folderSource{db: db},
		&tagSource{db: db},
		&recordingTagSource{db: db},
		&recordingFolderSource{db: db},
	}
}

// cursorPredicate builds the watermark condition for a source with fixed
// family priority p. The three-way split collapses the lexicographic
// comparison against the cursor key: a family ranked above the cursor's
// position may re-enter at the cursor timestamp, the cursor's own family
// resumes after its tie key, and a family ranked below it only matches
// strictly newer timestamps.
func cursorPredicate(p int64, tieExpr string, cur Cursor) (string, []interface{}) {
	switch {
	case p > cur.Priority:
		return "updated_at >= ?", []interface{}{cur.Timestamp}
	case p == cur.Priority:
		return "(updated_at > ? OR (updated_at = ? AND " + tieExpr + " > ?))",
			[]interface{}{cur.Timestamp, cur.Timestamp, cur.Key}
	default:
		return "updated_at > ?", []interface{}{cur.Timestamp}
	}
}

func opForDeleted(deletedAt sql.NullInt64) Op {
	if deletedAt.Valid {
		return OpDelete
	}
	return OpUpsert
}

// =====================================================
// Recordings (priority 1)
// =====================================================

type recordingPayload struct {
	Title      string `json:"title"`
	DurationMs int64  `json:"durationMs"`
	SizeBytes  int64  `json:"sizeBytes"`
	FileKey    string `json:"fileKey"`
	CreatedAt  int64  `json:"createdAt"`
}

type recordingSource struct {
	db *sql.DB
}

func (s *recordingSource) Type() EntityType { return EntityRecording }

func (s *recordingSource) ListChanges(ctx context.Context, userID string, cur Cursor, boundMs int64, limit int) ([]ChangeRow, error) {
	pred, args := cursorPredicate(PriorityRecording, "id", cur)
	query := fmt.Sprintf(`
	SELECT id, title, duration_ms, size_bytes, file_key, created_at, updated_at, deleted_at
	FROM recordings
	WHERE user_id = ? AND updated_at <= ? AND %s
	ORDER BY updated_at, id
	LIMIT ?`, pred)

	queryArgs := append([]interface{}{userID, boundMs}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRow
	for rows.Next() {
		var id string
		var p recordingPayload
		var updatedAt int64
		var deletedAt sql.NullInt64
		if err := rows.Scan(&id, &p.Title, &p.DurationMs, &p.SizeBytes, &p.FileKey,
			&p.CreatedAt, &updatedAt, &deletedAt); err != nil {
			return nil, err
		}

		payload, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ChangeRow{
			Type:        EntityRecording,
			Op:          opForDeleted(deletedAt),
			ID:          id,
			UserID:      userID,
			UpdatedAtMs: updatedAt,
			Priority:    PriorityRecording,
			Payload:     payload,
		})
	}
	return out, rows.Err()
}

// =====================================================
// Folders (priority 2)
// =====================================================

type folderPayload struct {
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

type folderSource struct {
	db *sql.DB
}

func (s *folderSource) Type() EntityType { return EntityFolder }

func (s *folderSource) ListChanges(ctx context.Context, userID string, cur Cursor, boundMs int64, limit int) ([]ChangeRow, error) {
	pred, args := cursorPredicate(PriorityFolder, "id", cur)
	query := fmt.Sprintf(`
	SELECT id, name, parent_id, created_at, updated_at, deleted_at
	FROM folders
	WHERE user_id = ? AND updated_at <= ? AND %s
	ORDER BY updated_at, id
	LIMIT ?`, pred)

	queryArgs := append([]interface{}{userID, boundMs}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRow
	for rows.Next() {
		var id string
		var p folderPayload
		var parentID sql.NullString
		var updatedAt int64
		var deletedAt sql.NullInt64
		if err := rows.Scan(&id, &p.Name, &parentID, &p.CreatedAt, &updatedAt, &deletedAt); err != nil {
			return nil, err
		}
		p.ParentID = parentID.String

		payload, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ChangeRow{
			Type:        EntityFolder,
			Op:          opForDeleted(deletedAt),
			ID:          id,
			UserID:      userID,
			UpdatedAtMs: updatedAt,
			Priority:    PriorityFolder,
			Payload:     payload,
			ParentID:    parentID.String,
		})
	}
	return out, rows.Err()
}

// =====================================================
// Tags (priority 3)
// =====================================================

type tagPayload struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"createdAt"`
}

type tagSource struct {
	db *sql.DB
}

func (s *tagSource) Type() EntityType { return EntityTag }

func (s *tagSource) ListChanges(ctx context.Context, userID string, cur Cursor, boundMs int64, limit int) ([]ChangeRow, error) {
	pred, args := cursorPredicate(PriorityTag, "id", cur)
	query := fmt.Sprintf(`
	SELECT id, name, color, created_at, updated_at, deleted_at
	FROM tags
	WHERE user_id = ? AND updated_at <= ? AND %s
	ORDER BY updated_at, id
	LIMIT ?`, pred)

	queryArgs := append([]interface{}{userID, boundMs}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRow
	for rows.Next() {
		var id string
		var p tagPayload
		var updatedAt int64
		var deletedAt sql.NullInt64
		if err := rows.Scan(&id, &p.Name, &p.Color, &p.CreatedAt, &updatedAt, &deletedAt); err != nil {
			return nil, err
		}

		payload, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ChangeRow{
			Type:        EntityTag,
			Op:          opForDeleted(deletedAt),
			ID:          id,
			UserID:      userID,
			UpdatedAtMs: updatedAt,
			Priority:    PriorityTag,
			Payload:     payload,
		})
	}
	return out, rows.Err()
}

// =====================================================
// Recording-tag links (priority 4)
// =====================================================

type recordingTagSource struct {
	db *sql.DB
}

func (s *recordingTagSource) Type() EntityType { return EntityRecordingTag }

func (s *recordingTagSource) ListChanges(ctx context.Context, userID string, cur Cursor, boundMs int64, limit int) ([]ChangeRow, error) {
	// The composite tie key orders identically to (recording_id, tag_id)
	// because ids are UUIDs and never contain the separator.
	const tieExpr = "recording_id || ':' || tag_id"
	pred, args := cursorPredicate(PriorityRecordingTag, tieExpr, cur)
	query := fmt.Sprintf(`
	SELECT recording_id, tag_id, updated_at, deleted_at
	FROM recording_tags
	WHERE user_id = ? AND updated_at <= ? AND %s
	ORDER BY updated_at, %s
	LIMIT ?`, pred, tieExpr)

	queryArgs := append([]interface{}{userID, boundMs}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRow
	for rows.Next() {
		var recordingID, tagID string
		var updatedAt int64
		var deletedAt sql.NullInt64
		if err := rows.Scan(&recordingID, &tagID, &updatedAt, &deletedAt); err != nil {
			return nil, err
		}

		out = append(out, ChangeRow{
			Type:        EntityRecordingTag,
			Op:          opForDeleted(deletedAt),
			ID:          recordingID + ":" + tagID,
			UserID:      userID,
			UpdatedAtMs: updatedAt,
			Priority:    PriorityRecordingTag,
			RecordingID: recordingID,
			TagID:       tagID,
		})
	}
	return out, rows.Err()
}

// =====================================================
// Recording-folder assignments (priority 5)
// =====================================================

type recordingFolderSource struct {
	db *sql.DB
}

func (s *recordingFolderSource) Type() EntityType { return EntityRecordingFolder }

func (s *recordingFolderSource) ListChanges(ctx context.Context, userID string, cur Cursor, boundMs int64, limit int) ([]ChangeRow, error) {
	pred, args := cursorPredicate(PriorityRecordingFolder, "recording_id", cur)
	query := fmt.Sprintf(`
	SELECT recording_id, folder_id, updated_at
	FROM recording_folders
	WHERE user_id = ? AND updated_at <= ? AND %s
	ORDER BY updated_at, recording_id
	LIMIT ?`, pred)

	queryArgs := append([]interface{}{userID, boundMs}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRow
	for rows.Next() {
		var recordingID, folderID string
		var updatedAt int64
		if err := rows.Scan(&recordingID, &folderID, &updatedAt); err != nil {
			return nil, err
		}

		// Always an upsert: unassignment is row absence, never an event.
		out = append(out, ChangeRow{
			Type:        EntityRecordingFolder,
			Op:          OpUpsert,
			ID:          recordingID,
			UserID:      userID,
			UpdatedAtMs: updatedAt,
			Priority:    PriorityRecordingFolder,
			RecordingID: recordingID,
			FolderID:    folderID,
		})
	}
	return out, rows.Err()
}
