package damsdk

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Sentinel errors for DAM API failures. Use errors.Is to branch on them;
// the full response context travels on the wrapping *APIError.
var (
	// ErrConfig indicates invalid client configuration.
	ErrConfig = errors.New("damsdk: invalid configuration")

	// ErrAuthentication indicates missing or invalid API credentials (401).
	ErrAuthentication = errors.New("damsdk: authentication failed")

	// ErrAuthorization indicates the key is valid but lacks access (403).
	ErrAuthorization = errors.New("damsdk: access denied")

	// ErrNotFound indicates the requested resource does not exist (404).
	ErrNotFound = errors.New("damsdk: resource not found")

	// ErrFileTooLarge indicates the payload exceeds the size limit (413).
	ErrFileTooLarge = errors.New("damsdk: file too large")

	// ErrValidation indicates the request was rejected as invalid (422).
	ErrValidation = errors.New("damsdk: validation failed")

	// ErrRateLimited indicates the request rate is too high (429).
	ErrRateLimited = errors.New("damsdk: rate limited")

	// ErrServer indicates a server-side failure (5xx).
	ErrServer = errors.New("damsdk: server error")
)

// APIError is a non-200 response from the DAM API.
type APIError struct {
	// StatusCode is the HTTP status the server returned.
	StatusCode int

	// Message is the server-provided error message, if any.
	Message string

	// RequestID echoes the X-Request-ID of the failed request.
	RequestID string

	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration

	kind error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.RequestID != "" {
		return fmt.Sprintf("damsdk: api error %d: %s (request %s)", e.StatusCode, msg, e.RequestID)
	}
	return fmt.Sprintf("damsdk: api error %d: %s", e.StatusCode, msg)
}

// Unwrap returns the sentinel matching the status code, or nil for
// statuses outside the known taxonomy.
func (e *APIError) Unwrap() error {
	return e.kind
}

// NewAPIError builds an APIError with its sentinel derived from the
// HTTP status. Useful for fakes and custom transports; the client uses
// it for every non-200 response.
func NewAPIError(status int, message, requestID string, retryAfter time.Duration) *APIError {
	e := &APIError{
		StatusCode: status,
		Message:    message,
		RequestID:  requestID,
		RetryAfter: retryAfter,
	}

	switch {
	case status == 401:
		e.kind = ErrAuthentication
	case status == 403:
		e.kind = ErrAuthorization
	case status == 404:
		e.kind = ErrNotFound
	case status == 413:
		e.kind = ErrFileTooLarge
	case status == 422:
		e.kind = ErrValidation
	case status == 429:
		e.kind = ErrRateLimited
	case status >= 500 && status < 600:
		e.kind = ErrServer
	}

	return e
}

// TransportError is a network-level failure: the request never produced
// an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("damsdk: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// retryableStatus is the set of HTTP statuses worth retrying.
var retryableStatus = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// RetryableStatus reports whether the given HTTP status is transient
// by default: request timeout, rate limiting, or a 5xx gateway/server
// condition.
func RetryableStatus(code int) bool {
	return retryableStatus[code]
}

// IsRetryable reports whether err is worth retrying: any transport-level
// failure, or an API error whose status is in the default retryable set.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return RetryableStatus(ae.StatusCode)
	}
	return false
}
