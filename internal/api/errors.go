package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	ghAPI "github.com/cli/go-gh/v2/pkg/api"
)

// ErrPlatform matches every error returned by a failed API request.
var ErrPlatform = errors.New("platform request failed")

// PlatformError describes a failed API operation. Requests are never retried;
// the rate limit snapshot tells the caller when it may try again.
type PlatformError struct {
	Op         string
	StatusCode int
	RateLimit  RateLimit
	Err        error
}

func (e *PlatformError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func (e *PlatformError) Is(target error) bool { return target == ErrPlatform }

// RateLimited reports whether the request was refused for lack of quota.
func (e *PlatformError) RateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode == http.StatusForbidden && e.RateLimit.Limit > 0 && e.RateLimit.Remaining == 0
}

// ResetAt is when the rate limit window resets, or the zero time.
func (e *PlatformError) ResetAt() time.Time {
	if e.RateLimit.Reset == 0 {
		return time.Time{}
	}
	return time.Unix(e.RateLimit.Reset, 0)
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	pe := &PlatformError{Op: op, Err: err}
	var httpErr *ghAPI.HTTPError
	if errors.As(err, &httpErr) {
		pe.StatusCode = httpErr.StatusCode
		pe.RateLimit = ParseRateLimit(httpErr.Headers)
	}
	return pe
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound
}
