package damsdk

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option configures a Client at construction time.
type Option func(*options) error

type options struct {
	httpClient *http.Client
	transport  http.RoundTripper
	timeout    *time.Duration
	userAgent  string
	logger     *zap.Logger
	rps        int
	burst      int
	insecure   bool
}

// WithHTTPClient replaces the default http.Client. Its transport is kept
// as the base of the client's transport chain.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return fmt.Errorf("%w: http client must not be nil", ErrConfig)
		}
		o.httpClient = hc
		return nil
	}
}

// WithTransport sets a custom http.RoundTripper as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return fmt.Errorf("%w: transport must not be nil", ErrConfig)
		}
		o.transport = rt
		return nil
	}
}

// WithTimeout sets the per-request timeout. The default is 30 seconds;
// zero disables the timeout entirely.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("%w: timeout must not be negative", ErrConfig)
		}
		o.timeout = &d
		return nil
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		if ua == "" {
			return fmt.Errorf("%w: user agent must not be empty", ErrConfig)
		}
		o.userAgent = ua
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of outbound requests
// at rps requests per second with the given burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("%w: throttle rps[%d] and burst[%d] must be greater than zero", ErrConfig, rps, burst)
		}
		o.rps = rps
		o.burst = burst
		return nil
	}
}

// WithLogger injects a structured logger. Requests are logged at debug
// level; credentials are never logged. The default logger discards
// everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) error {
		if l == nil {
			return fmt.Errorf("%w: logger must not be nil", ErrConfig)
		}
		o.logger = l
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Intended
// for development against self-signed endpoints.
func WithInsecureSkipVerify() Option {
	return func(o *options) error {
		o.insecure = true
		return nil
	}
}
