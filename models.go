package damsdk

import (
	"strings"
	"time"
)

// File is a stored asset as reported by the DAM API.
type File struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	OriginalName  string         `json:"original_name"`
	MimeType      string         `json:"mime_type"`
	Size          int64          `json:"size"`
	StoragePath   string         `json:"storage_path"`
	FileURL       string         `json:"file_url"`
	UserID        string         `json:"user_id"`
	FolderID      string         `json:"folder_id,omitempty"`
	Width         int            `json:"width,omitempty"`
	Height        int            `json:"height,omitempty"`
	Duration      float64        `json:"duration,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Checksum      string         `json:"checksum,omitempty"`
	IsPublic      bool           `json:"is_public"`
	DownloadCount int            `json:"download_count"`
	CreatedAt     time.Time      `json:"created_at,omitzero"`
	UpdatedAt     time.Time      `json:"updated_at,omitzero"`
}

// IsImage reports whether the file carries an image MIME type.
func (f *File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

// IsVideo reports whether the file carries a video MIME type.
func (f *File) IsVideo() bool {
	return strings.HasPrefix(f.MimeType, "video/")
}

// documentTypes are the MIME types the DAM treats as documents.
var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// IsDocument reports whether the file carries a document MIME type.
func (f *File) IsDocument() bool {
	return documentTypes[f.MimeType]
}

// Folder is a DAM folder. The public API addresses uploads by folder ID;
// folder management itself is server-side.
type Folder struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	UserID         string    `json:"user_id"`
	ParentFolderID string    `json:"parent_folder_id,omitempty"`
	Description    string    `json:"description,omitempty"`
	Color          string    `json:"color,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// Pagination describes the window of a list response.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FileList is a page of files plus its pagination window.
type FileList struct {
	Files      []File
	Pagination Pagination
}

// UploadOptions carries the optional form fields of an upload request.
type UploadOptions struct {
	// FolderID places the file into an existing folder.
	FolderID string

	// Metadata is attached to the file as a JSON object.
	Metadata map[string]string

	// OriginalName overrides the stored original filename.
	OriginalName string
}

// MultiUploadResult is the per-file breakdown of a multi-file upload.
type MultiUploadResult struct {
	Uploaded []File          `json:"uploaded"`
	Failed   []UploadFailure `json:"failed"`
	Counts   map[string]int  `json:"counts"`
}

// UploadFailure is one file a multi-file upload could not store.
type UploadFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ListOptions filters and paginates ListFiles. Zero values are omitted;
// the server defaults to limit 50, sorted by created_at descending.
type ListOptions struct {
	FolderID string
	MimeType string
	Search   string
	Limit    int
	Offset   int
	Sort     string
	Order    string
}

// BatchDeleteResult is the per-ID breakdown of a bulk delete.
type BatchDeleteResult struct {
	Deleted []string           `json:"deleted"`
	Failed  []BatchDeleteError `json:"failed"`
	Counts  map[string]int     `json:"counts"`
}

// BatchDeleteError is one ID a bulk delete could not remove.
type BatchDeleteError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}
