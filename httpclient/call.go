package httpclient

import (
	"context"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// Call is a finalized request, ready to execute. Executing it more than
// once repeats the whole exchange, request interception excepted.
type Call struct {
	client     *Client
	descriptor *transport.Descriptor
	policy     *RetryPolicy
	err        error
}

// Err returns the validation error recorded when the call was built, such
// as a *PathError. Executing the call returns the same error.
func (c *Call) Err() error {
	return c.err
}

// Descriptor returns a copy of the frozen request, or nil if the call
// failed validation.
func (c *Call) Descriptor() *transport.Descriptor {
	return c.descriptor.Clone()
}

// Execute dispatches the call, retrying as its policy allows, and runs the
// response or error interceptor on the outcome.
func (c *Call) Execute(ctx context.Context) (*Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.client.execute(ctx, c)
}

// Response executes the call and returns only the final body.
//
//	body, err := client.Request().Path("users", "42").Get().Response(ctx)
func (c *Call) Response(ctx context.Context) (any, error) {
	resp, err := c.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Into executes the call and decodes the final body into target.
func (c *Call) Into(ctx context.Context, target any) error {
	resp, err := c.Execute(ctx)
	if err != nil {
		return err
	}
	return resp.Decode(target)
}

// ResponseAs executes call and decodes the final body as T.
//
//	user, err := httpclient.ResponseAs[User](ctx, client.Request().Path("users", "42").Get())
func ResponseAs[T any](ctx context.Context, call *Call) (T, error) {
	var out T
	if err := call.Into(ctx, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// CurlCommand renders an equivalent cURL command line, or "" for a call
// that failed validation.
func (c *Call) CurlCommand() string {
	if c.descriptor == nil {
		return ""
	}
	return generateCurlCommand(c.descriptor)
}
