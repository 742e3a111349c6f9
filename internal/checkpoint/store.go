package checkpoint

import (
	"time"
)

// UploadStatus represents the status of a tracked upload
type UploadStatus string

const (
	StatusPending    UploadStatus = "pending"
	StatusInProgress UploadStatus = "in_progress"
	StatusCompleted  UploadStatus = "completed"
	StatusFailed     UploadStatus = "failed"
)

// UploadRecord represents one upload in the checkpoint store. Source is
// the origin identity (an absolute local path or s3://bucket/key) and,
// together with the target folder, keys the record.
type UploadRecord struct {
	Source    string       `json:"source"`
	FolderID  string       `json:"folder_id"`
	Name      string       `json:"name"`
	Size      int64        `json:"size"`
	FileID    string       `json:"file_id,omitempty"`
	Status    UploadStatus `json:"status"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"last_error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Store defines the interface for checkpoint persistence
type Store interface {
	// Upload operations
	GetUpload(source, folderID string) (*UploadRecord, error)
	SaveUpload(record *UploadRecord) error
	ListPendingUploads() ([]*UploadRecord, error)
	ListFailedUploads() ([]*UploadRecord, error)

	// Cleanup
	Close() error
}
