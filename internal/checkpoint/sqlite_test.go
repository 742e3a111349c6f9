package checkpoint

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetUpload(t *testing.T) {
	store := newTestStore(t)

	record := &UploadRecord{
		Source:   "/data/photos/cat.jpg",
		FolderID: "folder-1",
		Name:     "cat.jpg",
		Size:     2048,
		Status:   StatusPending,
	}
	require.NoError(t, store.SaveUpload(record))

	got, err := store.GetUpload("/data/photos/cat.jpg", "folder-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cat.jpg", got.Name)
	assert.Equal(t, int64(2048), got.Size)
	assert.Equal(t, StatusPending, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestGetUploadMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetUpload("/nope", "folder-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveUploadUpserts(t *testing.T) {
	store := newTestStore(t)

	record := &UploadRecord{
		Source:   "/data/a.txt",
		FolderID: "",
		Name:     "a.txt",
		Size:     10,
		Status:   StatusInProgress,
		Attempts: 1,
	}
	require.NoError(t, store.SaveUpload(record))

	record.Status = StatusCompleted
	record.FileID = "file-9"
	record.Attempts = 2
	require.NoError(t, store.SaveUpload(record))

	got, err := store.GetUpload("/data/a.txt", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "file-9", got.FileID)
	assert.Equal(t, 2, got.Attempts)
}

func TestSameSourceDifferentFolders(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveUpload(&UploadRecord{
		Source: "/data/a.txt", FolderID: "f1", Name: "a.txt", Status: StatusCompleted,
	}))
	require.NoError(t, store.SaveUpload(&UploadRecord{
		Source: "/data/a.txt", FolderID: "f2", Name: "a.txt", Status: StatusFailed, LastError: "server error",
	}))

	got1, err := store.GetUpload("/data/a.txt", "f1")
	require.NoError(t, err)
	require.NotNil(t, got1)
	assert.Equal(t, StatusCompleted, got1.Status)

	got2, err := store.GetUpload("/data/a.txt", "f2")
	require.NoError(t, err)
	require.NotNil(t, got2)
	assert.Equal(t, StatusFailed, got2.Status)
	assert.Equal(t, "server error", got2.LastError)
}

func TestListByStatus(t *testing.T) {
	store := newTestStore(t)

	for _, r := range []*UploadRecord{
		{Source: "/a", FolderID: "", Name: "a", Status: StatusPending},
		{Source: "/b", FolderID: "", Name: "b", Status: StatusFailed, LastError: "timeout"},
		{Source: "/c", FolderID: "", Name: "c", Status: StatusCompleted, FileID: "f-c"},
		{Source: "/d", FolderID: "", Name: "d", Status: StatusFailed, LastError: "rate limited"},
	} {
		require.NoError(t, store.SaveUpload(r))
	}

	pending, err := store.ListPendingUploads()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "/a", pending[0].Source)

	failed, err := store.ListFailedUploads()
	require.NoError(t, err)
	assert.Len(t, failed, 2)
}

func TestConcurrentSaves(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := store.SaveUpload(&UploadRecord{
				Source:   "/data/same.txt",
				FolderID: "f1",
				Name:     "same.txt",
				Size:     int64(n),
				Status:   StatusInProgress,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.GetUpload("/data/same.txt", "f1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.GetUpload("/a", "")
	assert.Error(t, err)
	assert.Error(t, store.SaveUpload(&UploadRecord{Source: "/a", Name: "a"}))
}
