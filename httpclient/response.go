package httpclient

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// Response is the outcome of an executed call.
type Response struct {
	// Body is the decoded body after response interception, or the value
	// an error interceptor recovered the call with.
	Body any

	// StatusCode of the last attempt; 0 if no response ever arrived.
	StatusCode int
	Header     http.Header
	RawBody    []byte

	// Attempts counts every dispatch made, including the first.
	Attempts int

	// Recovered is set when an error interceptor turned a failure into a success.
	Recovered bool

	Duration time.Duration
}

// IsSuccess reports whether the last attempt returned a 2xx status.
func (r *Response) IsSuccess() bool {
	return transport.IsSuccess(r.StatusCode)
}

// String returns the raw body of the last attempt as text.
func (r *Response) String() string {
	return string(r.RawBody)
}

// Decode copies Body into target, which must be a pointer. Bodies decoded
// as generic JSON values are converted to the target's type.
func (r *Response) Decode(target any) error {
	return decodeInto(r.Body, target)
}

func decodeInto(value, target any) error {
	if value == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("httpclient: encode response value: %w", err)
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("httpclient: decode response into %T: %w", target, err)
	}
	return nil
}
