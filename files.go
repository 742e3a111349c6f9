package damsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListFiles returns a page of files matching opts. A nil opts lists
// everything with the server defaults.
func (c *Client) ListFiles(ctx context.Context, opts *ListOptions) (*FileList, error) {
	query := url.Values{}
	if opts != nil {
		if opts.FolderID != "" {
			query.Set("folder_id", opts.FolderID)
		}
		if opts.MimeType != "" {
			query.Set("mime_type", opts.MimeType)
		}
		if opts.Search != "" {
			query.Set("search", opts.Search)
		}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			query.Set("offset", strconv.Itoa(opts.Offset))
		}
		if opts.Sort != "" {
			query.Set("sort", opts.Sort)
		}
		if opts.Order != "" {
			query.Set("order", opts.Order)
		}
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/public/files", query, nil, "")
	if err != nil {
		return nil, err
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	list := &FileList{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &list.Files); err != nil {
			return nil, fmt.Errorf("decoding file list: %w", err)
		}
	}
	if env.Pagination != nil {
		list.Pagination = *env.Pagination
	}
	return list, nil
}

// GetFile returns the details of a single file.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is required", ErrValidation)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/public/files/"+url.PathEscape(fileID), nil, nil, "")
	if err != nil {
		return nil, err
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(env.Data, &file); err != nil {
		return nil, fmt.Errorf("decoding file: %w", err)
	}
	return &file, nil
}

// DeleteFile removes a single file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("%w: file id is required", ErrValidation)
	}

	req, err := c.newRequest(ctx, http.MethodDelete, "/api/public/files/"+url.PathEscape(fileID), nil, nil, "")
	if err != nil {
		return err
	}

	_, err = c.do(req)
	return err
}

// BatchDelete removes multiple files in one request and reports the
// per-ID breakdown. Partial failure is expressed in the result, not as
// an error.
func (c *Client) BatchDelete(ctx context.Context, fileIDs []string) (*BatchDeleteResult, error) {
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: no file ids given", ErrValidation)
	}

	payload, err := json.Marshal(map[string][]string{"file_ids": fileIDs})
	if err != nil {
		return nil, fmt.Errorf("encoding bulk delete request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/files/bulk-delete", nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	result := &BatchDeleteResult{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return nil, fmt.Errorf("decoding bulk delete result: %w", err)
		}
	}
	return result, nil
}
