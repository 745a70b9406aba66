package httpclient

import (
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// RequestInterceptor edits a request before its first attempt. It runs once
// per call, never again on retries.
//
// Common use cases:
//   - authentication headers
//   - correlation or request IDs
//   - path prefixes through AppendPath
type RequestInterceptor func(rb *RequestBuilder) error

// ResponseInterceptor sees the decoded body of a successful call. A non-nil
// return value replaces the body; nil keeps it.
type ResponseInterceptor func(body any, res *transport.Result) (any, error)

// ErrorInterceptor sees the final failure of a call, after retries are done.
//
//   - (value, nil) with a non-nil value resolves the call with value
//   - (nil, nil) or returning err itself propagates the original failure
//   - any other error replaces the original failure
type ErrorInterceptor func(err error) (any, error)

// Interceptors holds the three optional hooks shared by every call of a
// client. A nil *Interceptors, or an unset hook, passes values through.
//
// Configure it fully before handing it to WithInterceptors; the client
// keeps its own copy.
type Interceptors struct {
	request  RequestInterceptor
	response ResponseInterceptor
	onError  ErrorInterceptor
}

// NewInterceptors creates an empty chain.
func NewInterceptors() *Interceptors {
	return &Interceptors{}
}

// OnRequest sets the request hook, replacing any previous one.
// Use ChainRequest to run several.
func (i *Interceptors) OnRequest(fn RequestInterceptor) *Interceptors {
	i.request = fn
	return i
}

// OnResponse sets the response hook.
func (i *Interceptors) OnResponse(fn ResponseInterceptor) *Interceptors {
	i.response = fn
	return i
}

// OnError sets the error hook.
func (i *Interceptors) OnError(fn ErrorInterceptor) *Interceptors {
	i.onError = fn
	return i
}

// ApplyRequest runs the request hook against rb.
func (i *Interceptors) ApplyRequest(rb *RequestBuilder) error {
	if i == nil || i.request == nil {
		return nil
	}
	if err := i.request(rb); err != nil {
		return &InterceptorError{Stage: StageRequest, Err: err}
	}
	return nil
}

// ApplyResponse runs the response hook and returns the body to hand back.
func (i *Interceptors) ApplyResponse(body any, res *transport.Result) (any, error) {
	if i == nil || i.response == nil {
		return body, nil
	}
	replaced, err := i.response(body, res)
	if err != nil {
		return nil, &InterceptorError{Stage: StageResponse, Err: err}
	}
	if replaced != nil {
		return replaced, nil
	}
	return body, nil
}

// ApplyError runs the error hook. It returns a non-nil value when the hook
// recovered the call, otherwise the error the caller should see.
func (i *Interceptors) ApplyError(err error) (any, error) {
	if i == nil || i.onError == nil {
		return nil, err
	}
	value, hookErr := i.onError(err)
	switch {
	case hookErr == nil && value != nil:
		return value, nil
	case hookErr == nil:
		return nil, err
	default:
		return nil, hookErr
	}
}

// ChainRequest runs request hooks in order, stopping at the first error.
func ChainRequest(fns ...RequestInterceptor) RequestInterceptor {
	return func(rb *RequestBuilder) error {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(rb); err != nil {
				return err
			}
		}
		return nil
	}
}

// Common request hooks

// AuthBearerInterceptor sends a fixed bearer token.
func AuthBearerInterceptor(token string) RequestInterceptor {
	return func(rb *RequestBuilder) error {
		rb.BearerAuthorization(token)
		return nil
	}
}

// AuthBearerFuncInterceptor fetches the bearer token on every call.
func AuthBearerFuncInterceptor(tokenFunc func() (string, error)) RequestInterceptor {
	return func(rb *RequestBuilder) error {
		token, err := tokenFunc()
		if err != nil {
			return err
		}
		rb.BearerAuthorization(token)
		return nil
	}
}

// OAuth2Interceptor authorizes calls with tokens from ts, which is expected
// to cache and refresh them (see oauth2.ReuseTokenSource).
func OAuth2Interceptor(ts oauth2.TokenSource) RequestInterceptor {
	return func(rb *RequestBuilder) error {
		tok, err := ts.Token()
		if err != nil {
			return err
		}
		rb.Authorization(tok.Type(), tok.AccessToken)
		return nil
	}
}

// APIKeyInterceptor sets headerName to apiKey.
func APIKeyInterceptor(headerName, apiKey string) RequestInterceptor {
	return func(rb *RequestBuilder) error {
		rb.Header(headerName, apiKey)
		return nil
	}
}

// CorrelationIDInterceptor sets headerName to a fresh idFunc() value.
func CorrelationIDInterceptor(headerName string, idFunc func() string) RequestInterceptor {
	return func(rb *RequestBuilder) error {
		rb.Header(headerName, idFunc())
		return nil
	}
}

// RequestIDInterceptor sets X-Request-ID to a random UUID unless the
// request already carries one.
func RequestIDInterceptor() RequestInterceptor {
	return func(rb *RequestBuilder) error {
		if rb.header.Get("X-Request-ID") == "" {
			rb.Header("X-Request-ID", uuid.NewString())
		}
		return nil
	}
}

// UserAgentInterceptor sets the User-Agent header.
func UserAgentInterceptor(userAgent string) RequestInterceptor {
	return func(rb *RequestBuilder) error {
		rb.Header("User-Agent", userAgent)
		return nil
	}
}

// UnwrapField replaces a JSON object body with the value under key, e.g.
// turning {"data": {...}} into {...}. Other bodies pass through.
func UnwrapField(key string) ResponseInterceptor {
	return func(body any, _ *transport.Result) (any, error) {
		if obj, ok := body.(map[string]any); ok {
			if v, ok := obj[key]; ok {
				return v, nil
			}
		}
		return nil, nil
	}
}

// Fallback resolves every failed call with value.
func Fallback(value any) ErrorInterceptor {
	return func(error) (any, error) {
		return value, nil
	}
}

// FallbackOnStatus resolves failed calls with value when the final status
// code is one of codes.
func FallbackOnStatus(value any, codes ...int) ErrorInterceptor {
	return func(err error) (any, error) {
		te := transport.AsError(err)
		for _, c := range codes {
			if te.StatusCode == c {
				return value, nil
			}
		}
		return nil, err
	}
}
