package damsdk

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Transform describes server-side image transformation parameters.
// Zero values are omitted from the query; the server applies fit "cover"
// and quality 80 when unset.
type Transform struct {
	Width     int
	Height    int
	Fit       string
	Format    string
	Quality   int
	Blur      int
	Grayscale bool
	Rotate    int
}

var (
	transformFits = map[string]bool{
		"cover":   true,
		"contain": true,
		"fill":    true,
		"inside":  true,
		"outside": true,
	}

	transformFormats = map[string]bool{
		"jpeg": true,
		"jpg":  true,
		"png":  true,
		"webp": true,
		"avif": true,
		"gif":  true,
	}
)

// Validate checks fit, format and quality against the values the
// transformation service accepts.
func (t *Transform) Validate() error {
	if t.Fit != "" && !transformFits[strings.ToLower(t.Fit)] {
		return fmt.Errorf("%w: unsupported fit %q", ErrValidation, t.Fit)
	}
	if t.Format != "" && !transformFormats[strings.ToLower(t.Format)] {
		return fmt.Errorf("%w: unsupported format %q", ErrValidation, t.Format)
	}
	if t.Quality < 0 || t.Quality > 100 {
		return fmt.Errorf("%w: quality %d out of range 1-100", ErrValidation, t.Quality)
	}
	return nil
}

// Query renders the transformation as URL query parameters.
func (t *Transform) Query() url.Values {
	q := url.Values{}
	if t.Width > 0 {
		q.Set("w", strconv.Itoa(t.Width))
	}
	if t.Height > 0 {
		q.Set("h", strconv.Itoa(t.Height))
	}
	if t.Fit != "" {
		q.Set("fit", t.Fit)
	}
	if t.Format != "" {
		q.Set("format", t.Format)
	}
	if t.Quality > 0 {
		q.Set("quality", strconv.Itoa(t.Quality))
	}
	if t.Blur > 0 {
		q.Set("blur", strconv.Itoa(t.Blur))
	}
	if t.Grayscale {
		q.Set("grayscale", "true")
	}
	if t.Rotate != 0 {
		q.Set("rotate", strconv.Itoa(t.Rotate))
	}
	return q
}

// FileURL builds the delivery URL for a file, optionally with
// transformation parameters. A nil transform yields the plain asset URL.
func (c *Client) FileURL(fileID string, t *Transform) string {
	u := c.baseURL + "/api/transform/" + url.PathEscape(fileID)
	if t == nil {
		return u
	}
	if q := t.Query().Encode(); q != "" {
		return u + "?" + q
	}
	return u
}

// ThumbnailURL builds the thumbnail URL for a file. size is the edge
// length in pixels; values below 1 fall back to 200.
func (c *Client) ThumbnailURL(fileID string, size int) string {
	if size < 1 {
		size = 200
	}
	return fmt.Sprintf("%s/api/transform/%s/thumbnail?size=%d", c.baseURL, url.PathEscape(fileID), size)
}
