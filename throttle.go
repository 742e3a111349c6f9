package damsdk

import (
	"net/http"

	"golang.org/x/time/rate"
)

// throttled is an http.RoundTripper that restricts outbound request rate
// with a token bucket. Waiting respects the request context.
type throttled struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func newThrottled(rps, burst int, next http.RoundTripper) *throttled {
	return &throttled{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		next:    next,
	}
}

func (t *throttled) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(r.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(r)
}
