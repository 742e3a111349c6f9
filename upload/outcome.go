package upload

import (
	"errors"
	"fmt"
	"time"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
)

// Kind classifies a failed upload.
type Kind string

const (
	// KindValidation marks input the caller must fix; never retried.
	KindValidation Kind = "validation"

	// KindAuth marks rejected credentials; never retried.
	KindAuth Kind = "auth"

	// KindNotFound marks a missing server-side resource.
	KindNotFound Kind = "not_found"

	// KindRateLimited marks a 429 rejection.
	KindRateLimited Kind = "rate_limited"

	// KindServer marks a 5xx response.
	KindServer Kind = "server"

	// KindTransport marks a network-level failure.
	KindTransport Kind = "transport"

	// KindExhausted marks a retryable failure that used up its budget.
	KindExhausted Kind = "exhausted"

	// KindCancelled marks an item the batch was cancelled before
	// attempting.
	KindCancelled Kind = "cancelled"
)

// Outcome is the terminal result of one item's attempt sequence.
type Outcome struct {
	// File is the uploaded asset; set only on success.
	File *damsdk.File

	// Err is the final error on failure, nil on success.
	Err error

	// Kind classifies Err. Empty on success.
	Kind Kind

	// Attempts is the number of upload attempts made, the successful
	// one included. Zero for items never attempted.
	Attempts int

	// Duration is the wall time spent on the item, backoff included.
	Duration time.Duration
}

// OK reports whether the item was uploaded.
func (o Outcome) OK() bool {
	return o.Err == nil && o.File != nil
}

// Report holds exactly one outcome per submitted item, aligned by index
// with the batch.
type Report struct {
	Outcomes []Outcome
}

// Len returns the number of items in the batch.
func (r *Report) Len() int {
	return len(r.Outcomes)
}

// Succeeded counts the items that uploaded.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed counts the items that did not upload.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Err joins the per-item failures into one error, nil when every item
// succeeded.
func (r *Report) Err() error {
	var errs []error
	for i, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i, o.Err))
		}
	}
	return errors.Join(errs...)
}

// classify maps a client error onto the outcome taxonomy. Errors the
// coordinator cannot recognize are reported as transport failures.
func classify(err error) Kind {
	switch {
	case errors.Is(err, damsdk.ErrAuthentication), errors.Is(err, damsdk.ErrAuthorization):
		return KindAuth
	case errors.Is(err, damsdk.ErrNotFound):
		return KindNotFound
	case errors.Is(err, damsdk.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, damsdk.ErrServer):
		return KindServer
	case errors.Is(err, damsdk.ErrValidation), errors.Is(err, damsdk.ErrFileTooLarge), errors.Is(err, damsdk.ErrConfig):
		return KindValidation
	}

	var ae *damsdk.APIError
	if errors.As(err, &ae) {
		if ae.StatusCode >= 500 {
			return KindServer
		}
		return KindValidation
	}

	return KindTransport
}
