package httpclient

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Retry defaults.
const (
	DefaultMaxAttempts   = 3
	DefaultRetryInterval = time.Second
)

// RetryPolicy decides whether a failed call is attempted again and how long
// to wait first. It is a value: the With* methods return modified copies and
// a policy attached to a client or request cannot be changed afterwards.
//
// Eligibility of a failure with status code s:
//   - StatusCodes non-empty: s must be listed (Predicate is ignored)
//   - otherwise Predicate, when set, decides
//   - otherwise every failure is eligible
//
// A status of 0 means no HTTP response was received. It never matches a
// StatusCodes list but passes when there is no restriction.
//
// Example:
//
//	policy := httpclient.DefaultRetryPolicy().
//	    WithMaxAttempts(5).
//	    WithInterval(200 * time.Millisecond).
//	    ForStatusCodes(502, 503, 504)
type RetryPolicy struct {
	// MaxAttempts counts every attempt including the first. Must be >= 1.
	MaxAttempts int

	// Interval is the base wait between attempts.
	Interval time.Duration

	// Exponential makes the wait after attempt n Interval * 2^n.
	// Otherwise every wait is Interval.
	Exponential bool

	// MaxInterval caps a single wait. Zero means uncapped.
	MaxInterval time.Duration

	StatusCodes []int
	Predicate   func(statusCode int) bool
}

// DefaultRetryPolicy returns 3 attempts, a 1s interval and exponential growth,
// retrying every failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Interval:    DefaultRetryInterval,
		Exponential: true,
	}
}

// NoRetryPolicy attempts once.
func NoRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// WithMaxAttempts returns a copy with the given attempt budget.
func (p RetryPolicy) WithMaxAttempts(n int) RetryPolicy {
	p.MaxAttempts = n
	return p
}

// WithInterval returns a copy with the given base interval.
func (p RetryPolicy) WithInterval(d time.Duration) RetryPolicy {
	p.Interval = d
	return p
}

// WithExponential returns a copy with exponential growth switched on or off.
func (p RetryPolicy) WithExponential(enabled bool) RetryPolicy {
	p.Exponential = enabled
	return p
}

// WithMaxInterval returns a copy whose waits never exceed d.
func (p RetryPolicy) WithMaxInterval(d time.Duration) RetryPolicy {
	p.MaxInterval = d
	return p
}

// ForStatusCodes returns a copy that only retries the listed status codes.
func (p RetryPolicy) ForStatusCodes(codes ...int) RetryPolicy {
	p.StatusCodes = slices.Clone(codes)
	return p
}

// When returns a copy that retries failures for which fn returns true.
// It only applies while no StatusCodes are configured.
func (p RetryPolicy) When(fn func(statusCode int) bool) RetryPolicy {
	p.Predicate = fn
	return p
}

// ShouldRetry reports whether a failure with statusCode is eligible.
func (p RetryPolicy) ShouldRetry(statusCode int) bool {
	if len(p.StatusCodes) > 0 {
		return slices.Contains(p.StatusCodes, statusCode)
	}
	if p.Predicate != nil {
		return p.Predicate(statusCode)
	}
	return true
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Interval <= 0 {
		return 0
	}

	d := p.Interval
	if p.Exponential && attempt > 0 {
		factor := math.Pow(2, float64(attempt))
		if float64(p.Interval)*factor >= math.MaxInt64 {
			d = time.Duration(math.MaxInt64)
		} else {
			d = time.Duration(float64(p.Interval) * factor)
		}
	}

	if p.MaxInterval > 0 && d > p.MaxInterval {
		return p.MaxInterval
	}
	return d
}

// Validate reports configuration errors wrapping ErrInvalidRetryPolicy.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidRetryPolicy, p.MaxAttempts)
	}
	if p.Interval < 0 {
		return fmt.Errorf("%w: interval must not be negative, got %s", ErrInvalidRetryPolicy, p.Interval)
	}
	if p.MaxInterval < 0 {
		return fmt.Errorf("%w: max interval must not be negative, got %s", ErrInvalidRetryPolicy, p.MaxInterval)
	}
	return nil
}
