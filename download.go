package damsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DownloadFile streams a file, optionally transformed, to destPath. The
// body is written to a temp file next to destPath and renamed into place
// on success, so a failed download never leaves a partial file behind.
func (c *Client) DownloadFile(ctx context.Context, fileID, destPath string, t *Transform) error {
	if fileID == "" {
		return fmt.Errorf("%w: file id is required", ErrValidation)
	}
	if destPath == "" {
		return fmt.Errorf("%w: destination path is required", ErrValidation)
	}
	if t != nil {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	var query url.Values
	if t != nil {
		query = t.Query()
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/transform/"+url.PathEscape(fileID), query, nil, "")
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Op: "GET " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var env envelope
		msg := http.StatusText(resp.StatusCode)
		if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
			msg = env.Message
		}
		return NewAPIError(
			resp.StatusCode,
			msg,
			resp.Header.Get(headerRequestID),
			parseRetryAfter(resp.Header.Get("Retry-After")),
		)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".dam-dl-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if cerr := tmp.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			c.logger.Warn("closing temp file", zap.Error(cerr))
		}
		if !successful {
			if rerr := os.Remove(tmp.Name()); rerr != nil {
				c.logger.Warn("removing temp file", zap.Error(rerr))
			}
		}
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return fmt.Errorf("writing download: %w", err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return fmt.Errorf("short download: expected %d bytes, got %d", resp.ContentLength, n)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	successful = true

	c.logger.Debug("download completed",
		zap.String("file_id", fileID),
		zap.String("path", destPath),
		zap.Int64("bytes", n),
	)

	return nil
}
