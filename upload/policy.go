package upload

import (
	"errors"
	"math"
	"time"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
)

// Policy controls retries for every item in a batch. It is read-only
// while a batch runs and safe to share between batches. Zero fields
// other than MaxRetries fall back to the defaults.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so
	// an item is attempted at most MaxRetries+1 times.
	MaxRetries int

	// BackoffBase is the delay before the first retry. Default 500ms.
	BackoffBase time.Duration

	// BackoffMultiplier grows the delay per further retry. Default 2.
	BackoffMultiplier float64

	// MaxBackoff caps the computed delay. Default 30s. A server
	// Retry-After hint may exceed the cap.
	MaxBackoff time.Duration

	// RetryableStatus overrides the HTTP statuses worth retrying. Nil
	// keeps the default set of 408, 429 and the transient 5xx codes.
	RetryableStatus map[int]bool
}

// DefaultPolicy returns the retry policy used when none is configured:
// 3 retries, 500ms base delay doubling per attempt, capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        3,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        30 * time.Second,
	}
}

// backoff computes the delay before retry number attempt, 1-based. A
// server Retry-After hint wins when it is longer than the computed
// delay.
func (p Policy) backoff(attempt int, hint time.Duration) time.Duration {
	base := p.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	mult := p.BackoffMultiplier
	if mult < 1 {
		mult = 2
	}
	limit := p.MaxBackoff
	if limit <= 0 {
		limit = 30 * time.Second
	}

	d := time.Duration(float64(base) * math.Pow(mult, float64(attempt-1)))
	if d <= 0 || d > limit {
		d = limit
	}
	if hint > d {
		d = hint
	}
	return d
}

// retryable reports whether err merits another attempt: any transport
// failure, or an API status in the policy's retryable set.
func (p Policy) retryable(err error) bool {
	var te *damsdk.TransportError
	if errors.As(err, &te) {
		return true
	}
	var ae *damsdk.APIError
	if errors.As(err, &ae) {
		if p.RetryableStatus != nil {
			return p.RetryableStatus[ae.StatusCode]
		}
		return damsdk.RetryableStatus(ae.StatusCode)
	}
	return false
}

// retryAfterHint extracts the server's Retry-After from an API error.
func retryAfterHint(err error) time.Duration {
	var ae *damsdk.APIError
	if errors.As(err, &ae) {
		return ae.RetryAfter
	}
	return 0
}
