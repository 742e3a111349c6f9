package damsdk

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorMessage(t *testing.T) {
	err := NewAPIError(404, "file not found", "req-123", 0)
	assert.Equal(t, "damsdk: api error 404: file not found (request req-123)", err.Error())

	err = NewAPIError(500, "", "", 0)
	assert.Equal(t, "damsdk: api error 500: unknown error", err.Error())
}

func TestNewAPIErrorSentinels(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, ErrAuthentication},
		{403, ErrAuthorization},
		{404, ErrNotFound},
		{413, ErrFileTooLarge},
		{422, ErrValidation},
		{429, ErrRateLimited},
		{500, ErrServer},
		{503, ErrServer},
	}

	for _, tt := range tests {
		err := NewAPIError(tt.status, "boom", "", 0)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}

	// Statuses outside the taxonomy carry no sentinel but stay
	// inspectable as *APIError.
	teapot := NewAPIError(418, "short and stout", "", 0)
	assert.Nil(t, errors.Unwrap(teapot))

	var ae *APIError
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", teapot), &ae)
	assert.Equal(t, 418, ae.StatusCode)
}

func TestAPIErrorCarriesRetryAfter(t *testing.T) {
	err := NewAPIError(429, "slow down", "", 7*time.Second)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 7*time.Second, err.RetryAfter)
}

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestTransportErrorTimeout(t *testing.T) {
	te := &TransportError{Op: "Get /api/public/files", Err: &fakeNetError{timeout: true}}
	assert.True(t, te.Timeout())
	assert.Contains(t, te.Error(), "Get /api/public/files")

	te = &TransportError{Op: "Get /api/public/files", Err: errors.New("connection refused")}
	assert.False(t, te.Timeout())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&TransportError{Op: "x", Err: errors.New("reset")}))
	assert.True(t, IsRetryable(NewAPIError(503, "", "", 0)))
	assert.True(t, IsRetryable(fmt.Errorf("attempt 2: %w", NewAPIError(429, "", "", 0))))
	assert.False(t, IsRetryable(NewAPIError(404, "", "", 0)))
	assert.False(t, IsRetryable(NewAPIError(422, "", "", 0)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 413, 422, 501} {
		assert.False(t, RetryableStatus(code), "status %d", code)
	}
}
