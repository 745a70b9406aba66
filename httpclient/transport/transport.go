// Package transport defines the contract between the request engine and the
// HTTP backends it can dispatch through.
//
// A Transport receives a fully built Descriptor and reports either a decoded
// Result or an *Error carrying the best status code it could determine.
// Transports never retry and never run interceptors; that is the engine's job.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Transport executes a single HTTP exchange described by a Descriptor.
//
// Any non-2xx response or network failure must be reported as an *Error.
type Transport interface {
	Do(ctx context.Context, d *Descriptor) (*Result, error)
	Name() string
}

// Func adapts a plain function to the Transport interface.
type Func func(ctx context.Context, d *Descriptor) (*Result, error)

// Do calls f(ctx, d).
func (f Func) Do(ctx context.Context, d *Descriptor) (*Result, error) {
	return f(ctx, d)
}

// Name returns "func".
func (f Func) Name() string {
	return "func"
}

// Result is a successful exchange.
type Result struct {
	StatusCode int
	Header     http.Header

	// Body is the decoded response body: JSON values for JSON payloads,
	// a string for other text, nil for an empty body.
	Body any

	RawBody []byte
}

// Error is the normalized failure shape every transport reports.
//
// StatusCode is 0 when no HTTP response was received.
type Error struct {
	Err        error
	StatusCode int
	Body       any
	Header     http.Header
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: status %d: %v", e.StatusCode, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrStatus is wrapped by errors produced for non-2xx responses.
var ErrStatus = errors.New("unexpected status")

// StatusError builds the *Error reported for a non-2xx response.
func StatusError(statusCode int, header http.Header, body any) *Error {
	return &Error{
		Err:        fmt.Errorf("%w: %d %s", ErrStatus, statusCode, http.StatusText(statusCode)),
		StatusCode: statusCode,
		Body:       body,
		Header:     header,
	}
}

// AsError returns err as an *Error. Errors of any other shape are wrapped
// with a zero status code. A nil err yields nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return &Error{Err: err}
}

// IsSuccess reports whether statusCode is in the 2xx range.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
