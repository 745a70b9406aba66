package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBaseURL is returned by New when the base URL is empty.
	ErrMissingBaseURL = errors.New("httpclient: base url is required")

	// ErrInvalidRetryPolicy is wrapped by RetryPolicy.Validate failures.
	ErrInvalidRetryPolicy = errors.New("httpclient: invalid retry policy")

	// ErrUnsupportedMethod is returned for verbs the builder does not know.
	ErrUnsupportedMethod = errors.New("httpclient: unsupported method")
)

// PathError reports an empty path segment. It is raised before any
// network call is made.
type PathError struct {
	Index   int
	Segment string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("httpclient: path segment %d (%q) is empty", e.Index, e.Segment)
}

// Stage names the interceptor hook that failed.
type Stage string

const (
	StageRequest  Stage = "request"
	StageResponse Stage = "response"
)

// InterceptorError wraps an error raised by a request or response hook.
// Errors returned by the error hook reach the caller unwrapped.
type InterceptorError struct {
	Stage Stage
	Err   error
}

func (e *InterceptorError) Error() string {
	return fmt.Sprintf("httpclient: %s interceptor: %v", e.Stage, e.Err)
}

func (e *InterceptorError) Unwrap() error {
	return e.Err
}
