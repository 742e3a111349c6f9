package damsdk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypePredicates(t *testing.T) {
	tests := []struct {
		mime     string
		image    bool
		video    bool
		document bool
	}{
		{"image/png", true, false, false},
		{"image/svg+xml", true, false, false},
		{"video/mp4", false, true, false},
		{"application/pdf", false, false, true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", false, false, true},
		{"application/zip", false, false, false},
		{"", false, false, false},
	}

	for _, tt := range tests {
		f := &File{MimeType: tt.mime}
		assert.Equal(t, tt.image, f.IsImage(), "IsImage %q", tt.mime)
		assert.Equal(t, tt.video, f.IsVideo(), "IsVideo %q", tt.mime)
		assert.Equal(t, tt.document, f.IsDocument(), "IsDocument %q", tt.mime)
	}
}

func TestFileDecode(t *testing.T) {
	raw := `{
		"id": "file-7",
		"filename": "render.png",
		"original_name": "final render (v2).png",
		"mime_type": "image/png",
		"size": 48213,
		"storage_path": "u1/file-7.png",
		"file_url": "https://cdn.example.com/u1/file-7.png",
		"user_id": "u1",
		"folder_id": "folder-2",
		"width": 1920,
		"height": 1080,
		"metadata": {"project": "atlas"},
		"is_public": true,
		"download_count": 3,
		"created_at": "2026-05-01T10:30:00Z"
	}`

	var f File
	require.NoError(t, json.Unmarshal([]byte(raw), &f))

	assert.Equal(t, "file-7", f.ID)
	assert.Equal(t, "final render (v2).png", f.OriginalName)
	assert.Equal(t, int64(48213), f.Size)
	assert.Equal(t, 1920, f.Width)
	assert.Equal(t, map[string]any{"project": "atlas"}, f.Metadata)
	assert.True(t, f.IsPublic)
	assert.Equal(t, time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC), f.CreatedAt)
	assert.True(t, f.UpdatedAt.IsZero())
}

func TestFolderDecode(t *testing.T) {
	raw := `{"id": "folder-2", "name": "renders", "path": "/projects/renders", "user_id": "u1", "parent_folder_id": "folder-1"}`

	var folder Folder
	require.NoError(t, json.Unmarshal([]byte(raw), &folder))

	assert.Equal(t, "renders", folder.Name)
	assert.Equal(t, "/projects/renders", folder.Path)
	assert.Equal(t, "folder-1", folder.ParentFolderID)
	assert.True(t, folder.CreatedAt.IsZero())
}
