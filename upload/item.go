// Package upload coordinates batch uploads to the DAM: a bounded worker
// pool, a per-item retry policy with exponential backoff, and an
// index-aligned report that makes partial failure visible per item.
package upload

import (
	"context"
	"io"
	"path/filepath"
)

// OpenFunc supplies an upload payload. It is called once per attempt so
// that retries re-read from the origin instead of resuming a spent
// stream.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// Item is one upload in a batch. Items are value types; the coordinator
// never mutates them after submission.
type Item struct {
	// Path is the local file to upload. Ignored when Open is set.
	Path string

	// Name is the upload name for Open-backed items, where it is
	// required. For file-backed items it overrides the original name
	// recorded by the server; the stored name stays the sanitized base
	// of Path.
	Name string

	// FolderID places the file into an existing folder.
	FolderID string

	// Metadata is attached to the uploaded file.
	Metadata map[string]string

	// MaxRetries overrides the policy's retry budget for this item.
	// Zero inherits the policy; a negative value disables retries.
	MaxRetries int

	// Open supplies the payload for non-file sources such as object
	// storage. When set, Path is ignored and Name must be set.
	Open OpenFunc
}

// displayName is the name used in logs and outcome errors.
func (it Item) displayName() string {
	if it.Name != "" {
		return it.Name
	}
	return filepath.Base(it.Path)
}
