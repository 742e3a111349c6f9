// Package damsdk is a Go client for the DAM (Digital Asset Management)
// HTTP API: file upload, listing, deletion, transformation URLs, download
// and statistics. Batch uploads with bounded concurrency and per-item
// retries live in the upload subpackage.
package damsdk

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds each request unless overridden via WithTimeout.
	DefaultTimeout = 30 * time.Second

	// MaxFileSize is the server's upload size limit, enforced client-side
	// before any network I/O.
	MaxFileSize = 100 << 20

	defaultUserAgent = "dam-sdk-go/1.0.0"

	headerKeyID     = "X-API-Key-ID"
	headerKeySecret = "X-API-Key-Secret"
	headerRequestID = "X-Request-ID"
)

// Client is a DAM API client. It is safe for concurrent use; construct
// one with New and share it.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	userAgent string
	httpc     *http.Client
	logger    *zap.Logger
}

// New builds a Client for the DAM API at apiURL, authenticating every
// request with the given key pair. The key secret is held in memory only
// and never logged.
func New(apiURL, keyID, keySecret string, opts ...Option) (*Client, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("%w: api url is required", ErrConfig)
	}
	if keyID == "" {
		return nil, fmt.Errorf("%w: api key id is required", ErrConfig)
	}
	if keySecret == "" {
		return nil, fmt.Errorf("%w: api key secret is required", ErrConfig)
	}

	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid api url: %v", ErrConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: api url must use http or https", ErrConfig)
	}

	o := options{
		userAgent: defaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	httpc := &http.Client{Timeout: DefaultTimeout}
	if o.httpClient != nil {
		cpy := *o.httpClient
		httpc = &cpy
	}
	if o.timeout != nil {
		httpc.Timeout = *o.timeout
	}

	var transport http.RoundTripper
	switch {
	case o.transport != nil:
		transport = o.transport
	case httpc.Transport != nil:
		transport = httpc.Transport
	default:
		transport = http.DefaultTransport
	}
	if o.insecure {
		if base, ok := transport.(*http.Transport); ok {
			t := base.Clone()
			if t.TLSClientConfig == nil {
				t.TLSClientConfig = &tls.Config{}
			}
			t.TLSClientConfig.InsecureSkipVerify = true
			transport = t
		}
	}
	if o.rps > 0 {
		transport = newThrottled(o.rps, o.burst, transport)
	}
	httpc.Transport = transport

	return &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		keyID:     keyID,
		keySecret: keySecret,
		userAgent: o.userAgent,
		httpc:     httpc,
		logger:    o.logger,
	}, nil
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the JSON wrapper every DAM API response arrives in.
type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
}

// newRequest builds an authenticated request for the given API path.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerKeyID, c.keyID)
	req.Header.Set(headerKeySecret, c.keySecret)
	req.Header.Set(headerRequestID, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

// do sends the request and decodes the response envelope. Any status
// other than 200 is returned as an *APIError; network-level failures are
// returned as *TransportError.
func (c *Client) do(req *http.Request) (*envelope, error) {
	start := time.Now()

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, &TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response body", Err: err}
	}

	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		env.Message = strings.TrimSpace(string(body))
	}

	if resp.StatusCode == http.StatusOK {
		return &env, nil
	}

	msg := env.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return nil, NewAPIError(
		resp.StatusCode,
		msg,
		resp.Header.Get(headerRequestID),
		parseRetryAfter(resp.Header.Get("Retry-After")),
	)
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
