// Shared fixtures for change feed tests.
package syncfeed

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	storedb "github.com/tetondan64/recordergear/backend/internal/db"
)

// setupFeedDB creates an in-memory SQLite database with the full schema.
func setupFeedDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to create test database")
	// single conn so every query sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storedb.MigrateUp(db))
	return db
}

// stubClock returns a fixed time so the snapshot bound is deterministic.
type stubClock struct {
	ms int64
}

func (c stubClock) Now() time.Time { return time.UnixMilli(c.ms) }

func insertRecording(t *testing.T, db *sql.DB, userID, id string, updatedMs int64, deletedMs *int64) {
	t.Helper()
	_, err := db.Exec(`
	INSERT INTO recordings (id, user_id, title, duration_ms, size_bytes, file_key, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, 1000, 2048, ?, ?, ?, ?)`,
		id, userID, "recording "+id, "rec/"+id, updatedMs, updatedMs, deletedArg(deletedMs))
	require.NoError(t, err)
}

func insertFolder(t *testing.T, db *sql.DB, userID, id string, parentID *string, updatedMs int64, deletedMs *int64) {
	t.Helper()
	var parent interface{}
	if parentID != nil {
		parent = *parentID
	}
	_, err := db.Exec(`
	INSERT INTO folders (id, user_id, name, parent_id, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, "folder "+id, parent, updatedMs, updatedMs, deletedArg(deletedMs))
	require.NoError(t, err)
}

func insertTag(t *testing.T, db *sql.DB, userID, id string, updatedMs int64, deletedMs *int64) {
	t.Helper()
	_, err := db.Exec(`
	INSERT INTO tags (id, user_id, name, color, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, '#3B82F6', ?, ?, ?)`,
		id, userID, "tag "+id, updatedMs, updatedMs, deletedArg(deletedMs))
	require.NoError(t, err)
}

func insertRecordingTag(t *testing.T, db *sql.DB, userID, recordingID, tagID string, updatedMs int64, deletedMs *int64) {
	t.Helper()
	_, err := db.Exec(`
	INSERT INTO recording_tags (recording_id, tag_id, user_id, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		recordingID, tagID, userID, updatedMs, updatedMs, deletedArg(deletedMs))
	require.NoError(t, err)
}

func insertRecordingFolder(t *testing.T, db *sql.DB, userID, recordingID, folderID string, updatedMs int64) {
	t.Helper()
	_, err := db.Exec(`
	INSERT INTO recording_folders (recording_id, folder_id, user_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`,
		recordingID, folderID, userID, updatedMs, updatedMs)
	require.NoError(t, err)
}

func deletedArg(ms *int64) interface{} {
	if ms == nil {
		return nil
	}
	return *ms
}

func ptr(ms int64) *int64 { return &ms }
