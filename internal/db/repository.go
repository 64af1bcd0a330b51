// Package db provides the entity write path for the RecorderGear sync backend.
//
// Every mutation here sets updated_at to the mutation time in milliseconds.
// The change feed keys off updated_at alone, so a write that skips the bump
// is invisible to replicas.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tetondan64/recordergear/backend/internal/models"
)

// MaxFolderDepth bounds the folder tree so clients can render it without
// unbounded recursion.
const MaxFolderDepth = 10

// Repository provides CRUD operations for all models.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// =====================================================
// Recording Operations
// =====================================================

// CreateRecording creates a new recording.
func (r *Repository) CreateRecording(rec *models.Recording) error {
	now := nowMs()
	rec.ID = models.UUID(uuid.New().String())
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `
	INSERT INTO recordings (id, user_id, title, duration_ms, size_bytes, file_key, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := r.db.Exec(query, rec.ID, rec.UserID, rec.Title, rec.DurationMs,
		rec.SizeBytes, rec.FileKey, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// GetRecording retrieves a live recording by ID, scoped to its owner.
func (r *Repository) GetRecording(userID, id string) (*models.Recording, error) {
	query := `
	SELECT id, user_id, title, duration_ms, size_bytes, file_key, created_at, updated_at, deleted_at
	FROM recordings WHERE user_id = ? AND id = ? AND deleted_at IS NULL
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var rec models.Recording
	var deletedAt sql.NullInt64
	err = stmt.QueryRow(userID, id).Scan(
		&rec.ID, &rec.UserID, &rec.Title, &rec.DurationMs, &rec.SizeBytes,
		&rec.FileKey, &rec.CreatedAt, &rec.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Int64
	}
	return &rec, nil
}

// UpdateRecording updates an existing recording.
//
// updated_at advances to MAX(now, updated_at + 1): a second mutation inside
// the same millisecond must still land strictly after the previous one, or
// a replica whose cursor sits on the row would never see it.
func (r *Repository) UpdateRecording(rec *models.Recording) error {
	rec.Touch()
	query := `
	UPDATE recordings
	SET title = ?, duration_ms = ?, size_bytes = ?, file_key = ?, updated_at = MAX(?, updated_at + 1)
	WHERE user_id = ? AND id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, rec.Title, rec.DurationMs, rec.SizeBytes,
		rec.FileKey, rec.UpdatedAt, rec.UserID, rec.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteRecording soft deletes a recording. The row stays in place so the
// change feed can deliver the deletion.
func (r *Repository) DeleteRecording(userID, id string) error {
	now := nowMs()
	query := `UPDATE recordings SET deleted_at = MAX(?, updated_at + 1), updated_at = MAX(?, updated_at + 1)
			  WHERE user_id = ? AND id = ? AND deleted_at IS NULL`
	result, err := r.db.Exec(query, now, now, userID, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// =====================================================
// Folder Operations
// =====================================================

// CreateFolder creates a new folder. The parent, when set, must be a live
// folder of the same user, and the resulting depth must not exceed
// MaxFolderDepth.
func (r *Repository) CreateFolder(f *models.Folder) error {
	if f.ParentID != nil {
		depth, err := r.folderDepth(string(f.UserID), string(*f.ParentID))
		if err != nil {
			return err
		}
		if depth+1 >= MaxFolderDepth {
			return fmt.Errorf("folder depth limit %d exceeded", MaxFolderDepth)
		}
	}

	now := nowMs()
	f.ID = models.UUID(uuid.New().String())
	f.CreatedAt = now
	f.UpdatedAt = now

	query := `
	INSERT INTO folders (id, user_id, name, parent_id, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := r.db.Exec(query, f.ID, f.UserID, f.Name, parentArg(f.ParentID), f.CreatedAt, f.UpdatedAt)
	return err
}

// GetFolder retrieves a live folder by ID, scoped to its owner.
func (r *Repository) GetFolder(userID, id string) (*models.Folder, error) {
	query := `
	SELECT id, user_id, name, parent_id, created_at, updated_at, deleted_at
	FROM folders WHERE user_id = ? AND id = ? AND deleted_at IS NULL
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var f models.Folder
	var parentID sql.NullString
	var deletedAt sql.NullInt64
	err = stmt.QueryRow(userID, id).Scan(
		&f.ID, &f.UserID, &f.Name, &parentID, &f.CreatedAt, &f.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		pid := models.UUID(parentID.String)
		f.ParentID = &pid
	}
	if deletedAt.Valid {
		f.DeletedAt = &deletedAt.Int64
	}
	return &f, nil
}

// UpdateFolder updates an existing folder's name and parent.
func (r *Repository) UpdateFolder(f *models.Folder) error {
	if f.ParentID != nil {
		depth, err := r.folderDepth(string(f.UserID), string(*f.ParentID))
		if err != nil {
			return err
		}
		if depth+1 >= MaxFolderDepth {
			return fmt.Errorf("folder depth limit %d exceeded", MaxFolderDepth)
		}
	}

	f.Touch()
	query := `
	UPDATE folders SET name = ?, parent_id = ?, updated_at = MAX(?, updated_at + 1)
	WHERE user_id = ? AND id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, f.Name, parentArg(f.ParentID), f.UpdatedAt, f.UserID, f.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteFolder soft deletes a folder.
func (r *Repository) DeleteFolder(userID, id string) error {
	now := nowMs()
	query := `UPDATE folders SET deleted_at = MAX(?, updated_at + 1), updated_at = MAX(?, updated_at + 1)
			  WHERE user_id = ? AND id = ? AND deleted_at IS NULL`
	result, err := r.db.Exec(query, now, now, userID, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// folderDepth returns the number of ancestors above the given folder.
func (r *Repository) folderDepth(userID, id string) (int, error) {
	depth := 0
	current := id
	for current != "" {
		f, err := r.GetFolder(userID, current)
		if err != nil {
			return 0, err
		}
		if f.ParentID == nil {
			return depth, nil
		}
		current = string(*f.ParentID)
		depth++
		if depth > MaxFolderDepth {
			// cycle guard
			return depth, fmt.Errorf("folder parent chain exceeds depth limit")
		}
	}
	return depth, nil
}

func parentArg(id *models.UUID) interface{} {
	if id == nil {
		return nil
	}
	return string(*id)
}

// =====================================================
// Tag Operations
// =====================================================

// CreateTag creates a new tag. Name uniqueness per user is enforced by the
// schema: inserting a duplicate live name fails with a constraint error.
func (r *Repository) CreateTag(tag *models.Tag) error {
	now := nowMs()
	tag.ID = models.UUID(uuid.New().String())
	tag.CreatedAt = now
	tag.UpdatedAt = now

	query := `
	INSERT INTO tags (id, user_id, name, color, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := r.db.Exec(query, tag.ID, tag.UserID, tag.Name, tag.Color, tag.CreatedAt, tag.UpdatedAt)
	return err
}

// GetTag retrieves a live tag by ID, scoped to its owner.
func (r *Repository) GetTag(userID, id string) (*models.Tag, error) {
	query := `
	SELECT id, user_id, name, color, created_at, updated_at, deleted_at
	FROM tags WHERE user_id = ? AND id = ? AND deleted_at IS NULL
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var tag models.Tag
	var deletedAt sql.NullInt64
	err = stmt.QueryRow(userID, id).Scan(
		&tag.ID, &tag.UserID, &tag.Name, &tag.Color, &tag.CreatedAt, &tag.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		tag.DeletedAt = &deletedAt.Int64
	}
	return &tag, nil
}

// ListTags returns all live tags for a user.
func (r *Repository) ListTags(userID string) ([]*models.Tag, error) {
	query := `SELECT id, user_id, name, color, created_at, updated_at, deleted_at
			  FROM tags WHERE user_id = ? AND deleted_at IS NULL ORDER BY name`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var tag models.Tag
		var deletedAt sql.NullInt64
		err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.Color,
			&tag.CreatedAt, &tag.UpdatedAt, &deletedAt)
		if err != nil {
			return nil, err
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

// UpdateTag updates an existing tag.
func (r *Repository) UpdateTag(tag *models.Tag) error {
	tag.Touch()
	query := `UPDATE tags SET name = ?, color = ?, updated_at = MAX(?, updated_at + 1)
			  WHERE user_id = ? AND id = ? AND deleted_at IS NULL`
	result, err := r.db.Exec(query, tag.Name, tag.Color, tag.UpdatedAt, tag.UserID, tag.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTag soft deletes a tag.
func (r *Repository) DeleteTag(userID, id string) error {
	now := nowMs()
	query := `UPDATE tags SET deleted_at = MAX(?, updated_at + 1), updated_at = MAX(?, updated_at + 1)
			  WHERE user_id = ? AND id = ? AND deleted_at IS NULL`
	result, err := r.db.Exec(query, now, now, userID, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// =====================================================
// Recording-Tag Link Operations
// =====================================================

// AssignTag links a tag to a recording. Re-assigning a previously removed
// link revives the existing row and bumps updated_at so the upsert reaches
// replicas.
func (r *Repository) AssignTag(userID, recordingID, tagID string) error {
	if _, err := r.GetRecording(userID, recordingID); err != nil {
		return err
	}
	if _, err := r.GetTag(userID, tagID); err != nil {
		return err
	}

	now := nowMs()
	query := `
	INSERT INTO recording_tags (recording_id, tag_id, user_id, created_at, updated_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, NULL)
	ON CONFLICT(recording_id, tag_id) DO UPDATE
		SET deleted_at = NULL, updated_at = MAX(excluded.updated_at, recording_tags.updated_at + 1)
	`
	_, err := r.db.Exec(query, recordingID, tagID, userID, now, now)
	return err
}

// RemoveTag soft deletes a recording-tag link and bumps updated_at so the
// removal reaches replicas as a delete event.
func (r *Repository) RemoveTag(userID, recordingID, tagID string) error {
	now := nowMs()
	query := `
	UPDATE recording_tags SET deleted_at = MAX(?, updated_at + 1), updated_at = MAX(?, updated_at + 1)
	WHERE user_id = ? AND recording_id = ? AND tag_id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, now, now, userID, recordingID, tagID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// =====================================================
// Recording-Folder Assignment Operations
// =====================================================

// AssignToFolder places a recording in a folder, replacing any previous
// assignment in place.
func (r *Repository) AssignToFolder(userID, recordingID, folderID string) error {
	if _, err := r.GetRecording(userID, recordingID); err != nil {
		return err
	}
	if _, err := r.GetFolder(userID, folderID); err != nil {
		return err
	}

	now := nowMs()
	query := `
	INSERT INTO recording_folders (recording_id, folder_id, user_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(recording_id) DO UPDATE
		SET folder_id = excluded.folder_id, updated_at = MAX(excluded.updated_at, recording_folders.updated_at + 1)
	`
	_, err := r.db.Exec(query, recordingID, folderID, userID, now, now)
	return err
}

// RemoveFromFolder removes a recording's folder assignment by deleting the
// row. Row absence is the only representation of "unassigned": the change
// feed never emits a delete event for folder assignments, replicas infer it.
func (r *Repository) RemoveFromFolder(userID, recordingID string) error {
	query := `DELETE FROM recording_folders WHERE user_id = ? AND recording_id = ?`
	result, err := r.db.Exec(query, userID, recordingID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
