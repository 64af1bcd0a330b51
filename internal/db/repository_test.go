// Package db tests for the entity write path.
package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetondan64/recordergear/backend/internal/models"
)

const testUser = "user-1"

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo := NewRepository(setupTestDB(t))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createRecording(t *testing.T, repo *Repository, title string) *models.Recording {
	t.Helper()
	rec := &models.Recording{UserID: testUser, Title: title, DurationMs: 60000, SizeBytes: 1024, FileKey: "rec/" + title}
	require.NoError(t, repo.CreateRecording(rec))
	return rec
}

func TestRecordingLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	rec := createRecording(t, repo, "standup notes")
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	got, err := repo.GetRecording(testUser, string(rec.ID))
	require.NoError(t, err)
	assert.Equal(t, "standup notes", got.Title)
	assert.False(t, got.IsDeleted())

	got.Title = "renamed"
	require.NoError(t, repo.UpdateRecording(got))
	assert.GreaterOrEqual(t, got.UpdatedAt, got.CreatedAt)

	require.NoError(t, repo.DeleteRecording(testUser, string(rec.ID)))

	_, err = repo.GetRecording(testUser, string(rec.ID))
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// Soft delete keeps the row and bumps updated_at for the feed.
	var deletedAt sql.NullInt64
	var updatedAt int64
	require.NoError(t, repo.db.QueryRow(
		"SELECT deleted_at, updated_at FROM recordings WHERE id = ?", rec.ID,
	).Scan(&deletedAt, &updatedAt))
	require.True(t, deletedAt.Valid)
	assert.Equal(t, deletedAt.Int64, updatedAt)
}

func TestRecordingIsUserScoped(t *testing.T) {
	repo := newTestRepo(t)
	rec := createRecording(t, repo, "mine")

	_, err := repo.GetRecording("someone-else", string(rec.ID))
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.ErrorIs(t, repo.DeleteRecording("someone-else", string(rec.ID)), sql.ErrNoRows)
}

func TestFolderDepthLimit(t *testing.T) {
	repo := newTestRepo(t)

	var parent *models.UUID
	for i := 0; i < MaxFolderDepth; i++ {
		f := &models.Folder{UserID: testUser, Name: "level", ParentID: parent}
		require.NoError(t, repo.CreateFolder(f), "level %d", i)
		id := f.ID
		parent = &id
	}

	over := &models.Folder{UserID: testUser, Name: "too deep", ParentID: parent}
	assert.Error(t, repo.CreateFolder(over))
}

func TestTagNameUniquePerUser(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateTag(&models.Tag{UserID: testUser, Name: "work"}))
	assert.Error(t, repo.CreateTag(&models.Tag{UserID: testUser, Name: "work"}))

	// A different user may reuse the name.
	require.NoError(t, repo.CreateTag(&models.Tag{UserID: "user-2", Name: "work"}))
}

func TestTagNameReusableAfterDelete(t *testing.T) {
	repo := newTestRepo(t)

	tag := &models.Tag{UserID: testUser, Name: "work"}
	require.NoError(t, repo.CreateTag(tag))
	require.NoError(t, repo.DeleteTag(testUser, string(tag.ID)))

	require.NoError(t, repo.CreateTag(&models.Tag{UserID: testUser, Name: "work"}))
}

func TestListTags(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateTag(&models.Tag{UserID: testUser, Name: "beta"}))
	require.NoError(t, repo.CreateTag(&models.Tag{UserID: testUser, Name: "alpha"}))
	deleted := &models.Tag{UserID: testUser, Name: "gone"}
	require.NoError(t, repo.CreateTag(deleted))
	require.NoError(t, repo.DeleteTag(testUser, string(deleted.ID)))

	tags, err := repo.ListTags(testUser)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "alpha", tags[0].Name)
	assert.Equal(t, "beta", tags[1].Name)
}

func TestAssignTagReviveAfterRemove(t *testing.T) {
	repo := newTestRepo(t)

	rec := createRecording(t, repo, "tagged")
	tag := &models.Tag{UserID: testUser, Name: "work"}
	require.NoError(t, repo.CreateTag(tag))

	require.NoError(t, repo.AssignTag(testUser, string(rec.ID), string(tag.ID)))
	require.NoError(t, repo.RemoveTag(testUser, string(rec.ID), string(tag.ID)))

	var deletedAt sql.NullInt64
	require.NoError(t, repo.db.QueryRow(
		"SELECT deleted_at FROM recording_tags WHERE recording_id = ? AND tag_id = ?", rec.ID, tag.ID,
	).Scan(&deletedAt))
	assert.True(t, deletedAt.Valid)

	// Re-assignment revives the same row.
	require.NoError(t, repo.AssignTag(testUser, string(rec.ID), string(tag.ID)))
	require.NoError(t, repo.db.QueryRow(
		"SELECT deleted_at FROM recording_tags WHERE recording_id = ? AND tag_id = ?", rec.ID, tag.ID,
	).Scan(&deletedAt))
	assert.False(t, deletedAt.Valid)

	var count int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM recording_tags").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRemoveTagMissingLink(t *testing.T) {
	repo := newTestRepo(t)
	assert.ErrorIs(t, repo.RemoveTag(testUser, "r-none", "t-none"), sql.ErrNoRows)
}

func TestAssignToFolderReassigns(t *testing.T) {
	repo := newTestRepo(t)

	rec := createRecording(t, repo, "filed")
	f1 := &models.Folder{UserID: testUser, Name: "inbox"}
	f2 := &models.Folder{UserID: testUser, Name: "archive"}
	require.NoError(t, repo.CreateFolder(f1))
	require.NoError(t, repo.CreateFolder(f2))

	require.NoError(t, repo.AssignToFolder(testUser, string(rec.ID), string(f1.ID)))
	require.NoError(t, repo.AssignToFolder(testUser, string(rec.ID), string(f2.ID)))

	var folderID string
	var count int
	require.NoError(t, repo.db.QueryRow(
		"SELECT folder_id FROM recording_folders WHERE recording_id = ?", rec.ID,
	).Scan(&folderID))
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM recording_folders").Scan(&count))
	assert.Equal(t, string(f2.ID), folderID)
	assert.Equal(t, 1, count)
}

func TestRemoveFromFolderDeletesRow(t *testing.T) {
	repo := newTestRepo(t)

	rec := createRecording(t, repo, "filed")
	f := &models.Folder{UserID: testUser, Name: "inbox"}
	require.NoError(t, repo.CreateFolder(f))
	require.NoError(t, repo.AssignToFolder(testUser, string(rec.ID), string(f.ID)))

	require.NoError(t, repo.RemoveFromFolder(testUser, string(rec.ID)))

	var count int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM recording_folders").Scan(&count))
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.RemoveFromFolder(testUser, string(rec.ID)), sql.ErrNoRows)
}

func TestAssignTagRequiresOwnedEntities(t *testing.T) {
	repo := newTestRepo(t)

	rec := createRecording(t, repo, "mine")
	tag := &models.Tag{UserID: "user-2", Name: "theirs"}
	require.NoError(t, repo.CreateTag(tag))

	assert.ErrorIs(t, repo.AssignTag(testUser, string(rec.ID), string(tag.ID)), sql.ErrNoRows)
}
