package damsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// maxMetadataKeyLen bounds the length of a single metadata key.
const maxMetadataKeyLen = 128

// MaxBatchFiles is the server's per-request file limit for the
// multi-file upload endpoint.
const MaxBatchFiles = 10

// UploadFile uploads the file at path as a single asset. Size and
// readability are validated before any network I/O; the stored filename
// is the sanitized base name of path.
func (c *Client) UploadFile(ctx context.Context, path string, opts *UploadOptions) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrValidation, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, info.Size(), MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	defer f.Close()

	name := SanitizeFilename(path)
	return c.upload(ctx, f, name, opts)
}

// UploadReader uploads r as a single asset stored under name. Use it for
// sources that are not local files; the payload is still capped at
// MaxFileSize.
func (c *Client) UploadReader(ctx context.Context, r io.Reader, name string, opts *UploadOptions) (*File, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: upload name is required", ErrValidation)
	}
	return c.upload(ctx, r, SanitizeFilename(name), opts)
}

// UploadFiles uploads up to MaxBatchFiles local files in a single
// request and returns the server's per-file breakdown. Every path is
// validated before any network I/O, so one bad path fails the whole
// call; for independent per-item retries and bounded concurrency use
// the upload subpackage instead.
func (c *Client) UploadFiles(ctx context.Context, paths []string, opts *UploadOptions) (*MultiUploadResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files given", ErrValidation)
	}
	if len(paths) > MaxBatchFiles {
		return nil, fmt.Errorf("%w: %d files exceed the batch limit of %d", ErrValidation, len(paths), MaxBatchFiles)
	}
	if opts == nil {
		opts = &UploadOptions{}
	}
	if err := validateMetadata(opts.Metadata); err != nil {
		return nil, err
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrValidation, path)
		}
		if info.Size() > MaxFileSize {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, info.Size(), MaxFileSize)
		}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, path := range paths {
		if err := addFileFromPath(w, "files", path); err != nil {
			return nil, err
		}
	}
	if err := addUploadFields(w, opts); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/public/multiple", nil, &buf, w.FormDataContentType())
	if err != nil {
		return nil, err
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result MultiUploadResult
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return nil, fmt.Errorf("decoding upload response: %w", err)
		}
	}
	return &result, nil
}

func (c *Client) upload(ctx context.Context, r io.Reader, filename string, opts *UploadOptions) (*File, error) {
	if opts == nil {
		opts = &UploadOptions{}
	}
	if err := validateMetadata(opts.Metadata); err != nil {
		return nil, err
	}

	body, contentType, err := buildUploadBody(r, filename, opts)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/public/single", nil, body, contentType)
	if err != nil {
		return nil, err
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(env.Data, &file); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &file, nil
}

func validateMetadata(meta map[string]string) error {
	for k := range meta {
		if len(k) > maxMetadataKeyLen {
			return fmt.Errorf("%w: metadata key %q exceeds %d bytes", ErrValidation, k, maxMetadataKeyLen)
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildUploadBody renders the multipart form the single-file endpoint
// accepts: the file part plus the folder_id, metadata and original_name
// fields.
func buildUploadBody(r io.Reader, filename string, opts *UploadOptions) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := addFilePart(w, "file", filename, r); err != nil {
		return nil, "", err
	}
	if err := addUploadFields(w, opts); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("building upload form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// addFilePart writes one file part under field, with the filename and a
// Content-Type sniffed from its extension. The payload is capped at
// MaxFileSize even for unsized readers.
func addFilePart(w *multipart.Writer, field, filename string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", MimeTypeFor(filename))

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("building upload form: %w", err)
	}

	n, err := io.Copy(part, io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return fmt.Errorf("%w: reading upload payload: %v", ErrValidation, err)
	}
	if n > MaxFileSize {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrFileTooLarge, MaxFileSize)
	}
	return nil
}

func addFileFromPath(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	defer f.Close()
	return addFilePart(w, field, SanitizeFilename(path), f)
}

func addUploadFields(w *multipart.Writer, opts *UploadOptions) error {
	if opts.FolderID != "" {
		if err := w.WriteField("folder_id", opts.FolderID); err != nil {
			return fmt.Errorf("building upload form: %w", err)
		}
	}
	if len(opts.Metadata) > 0 {
		meta, err := json.Marshal(opts.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encoding metadata: %v", ErrValidation, err)
		}
		if err := w.WriteField("metadata", string(meta)); err != nil {
			return fmt.Errorf("building upload form: %w", err)
		}
	}
	if opts.OriginalName != "" {
		if err := w.WriteField("original_name", opts.OriginalName); err != nil {
			return fmt.Errorf("building upload form: %w", err)
		}
	}
	return nil
}

// SanitizeFilename strips any directory components and replaces the
// characters the DAM rejects in stored names with underscores.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
}

// MimeTypeFor guesses a MIME type from the file extension, falling back
// to application/octet-stream.
func MimeTypeFor(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
