package httpclient

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// RequestBuilder assembles one request. Setters return the builder for
// chaining; a method selector (Get, Post, ...) freezes it into a Call.
//
// Builders are not safe for concurrent use. Build, dispatch, and start a
// new builder for the next request.
type RequestBuilder struct {
	client   *Client
	segments []string
	query    url.Values
	header   http.Header
	payload  any
	retry    *RetryPolicy

	uploads    []FileUpload
	formFields url.Values
}

// Path replaces the path segments. Segments are joined with a single "/"
// after the base URL; each must be non-empty.
//
//	client.Request().Path("users", userID, "orders")
func (rb *RequestBuilder) Path(segments ...string) *RequestBuilder {
	rb.segments = append([]string(nil), segments...)
	return rb
}

// AppendPath adds segments after the current ones.
func (rb *RequestBuilder) AppendPath(segments ...string) *RequestBuilder {
	rb.segments = append(rb.segments, segments...)
	return rb
}

// Segments returns a copy of the current path segments.
func (rb *RequestBuilder) Segments() []string {
	return append([]string(nil), rb.segments...)
}

// Query sets a query parameter. Values are formatted with fmt.Sprint;
// string slices become repeated parameters.
func (rb *RequestBuilder) Query(name string, value any) *RequestBuilder {
	switch v := value.(type) {
	case []string:
		rb.query[name] = append([]string(nil), v...)
	case string:
		rb.query.Set(name, v)
	default:
		rb.query.Set(name, fmt.Sprint(v))
	}
	return rb
}

// Queries sets several query parameters.
func (rb *RequestBuilder) Queries(params map[string]any) *RequestBuilder {
	for k, v := range params {
		rb.Query(k, v)
	}
	return rb
}

// Payload sets the request body. Strings go out as text, byte slices as
// octet streams, url.Values form-encoded, anything else as JSON. The payload
// is encoded once when the request is finalized, so retries resend the same
// bytes and an unencodable payload fails the call before any dispatch.
func (rb *RequestBuilder) Payload(v any) *RequestBuilder {
	rb.payload = v
	return rb
}

// Header sets a header, replacing earlier values including client defaults.
func (rb *RequestBuilder) Header(name, value string) *RequestBuilder {
	rb.header.Set(name, value)
	return rb
}

// Headers sets several headers.
func (rb *RequestBuilder) Headers(headers map[string]string) *RequestBuilder {
	for k, v := range headers {
		rb.Header(k, v)
	}
	return rb
}

// Authorization sets "Authorization: <authType> <value>".
func (rb *RequestBuilder) Authorization(authType, value string) *RequestBuilder {
	return rb.Header("Authorization", authType+" "+value)
}

// BasicAuthorization sets HTTP basic credentials.
func (rb *RequestBuilder) BasicAuthorization(username, password string) *RequestBuilder {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return rb.Authorization("Basic", creds)
}

// BearerAuthorization sets a bearer token.
func (rb *RequestBuilder) BearerAuthorization(token string) *RequestBuilder {
	return rb.Authorization("Bearer", token)
}

// RetryPolicy overrides the client policy for this request only.
func (rb *RequestBuilder) RetryPolicy(p RetryPolicy) *RequestBuilder {
	p.StatusCodes = append([]int(nil), p.StatusCodes...)
	rb.retry = &p
	return rb
}

// Retry sets the attempt budget and base interval for this request,
// starting from the client policy or DefaultRetryPolicy.
func (rb *RequestBuilder) Retry(maxAttempts int, interval time.Duration) *RequestBuilder {
	return rb.RetryPolicy(rb.effectivePolicy().WithMaxAttempts(maxAttempts).WithInterval(interval))
}

// RetryOnStatusCodes limits retries of this request to the listed codes.
func (rb *RequestBuilder) RetryOnStatusCodes(codes ...int) *RequestBuilder {
	return rb.RetryPolicy(rb.effectivePolicy().ForStatusCodes(codes...))
}

// RetryWhen retries this request when fn approves the failure status.
func (rb *RequestBuilder) RetryWhen(fn func(statusCode int) bool) *RequestBuilder {
	return rb.RetryPolicy(rb.effectivePolicy().When(fn))
}

// NoRetry attempts this request once, whatever the client policy says.
func (rb *RequestBuilder) NoRetry() *RequestBuilder {
	return rb.RetryPolicy(NoRetryPolicy())
}

func (rb *RequestBuilder) effectivePolicy() RetryPolicy {
	if rb.retry != nil {
		return *rb.retry
	}
	if p := rb.client.config.RetryPolicy; p != nil {
		return *p
	}
	return DefaultRetryPolicy()
}

// Get finalizes the request as GET.
func (rb *RequestBuilder) Get() *Call { return rb.Method(transport.MethodGet) }

// Post finalizes the request as POST.
func (rb *RequestBuilder) Post() *Call { return rb.Method(transport.MethodPost) }

// Put finalizes the request as PUT.
func (rb *RequestBuilder) Put() *Call { return rb.Method(transport.MethodPut) }

// Patch finalizes the request as PATCH.
func (rb *RequestBuilder) Patch() *Call { return rb.Method(transport.MethodPatch) }

// Delete finalizes the request as DELETE.
func (rb *RequestBuilder) Delete() *Call { return rb.Method(transport.MethodDelete) }

// Method runs the request interceptor, validates the request and freezes it
// into a Call. Validation failures surface from Call.Response without any
// network activity.
func (rb *RequestBuilder) Method(m transport.Method) *Call {
	call := &Call{client: rb.client}

	if !m.Valid() {
		call.err = fmt.Errorf("%w: %q", ErrUnsupportedMethod, m)
		return call
	}

	if err := rb.client.config.Interceptors.ApplyRequest(rb); err != nil {
		call.err = err
		return call
	}

	for i, s := range rb.segments {
		if strings.Trim(s, "/") == "" {
			call.err = &PathError{Index: i, Segment: s}
			return call
		}
	}

	payload := rb.payload
	if len(rb.uploads) > 0 || len(rb.formFields) > 0 {
		mp, err := rb.buildMultipart()
		if err != nil {
			call.err = fmt.Errorf("httpclient: build multipart body: %w", err)
			return call
		}
		payload = mp
	} else if payload != nil {
		// Encoded once so every attempt resends the same bytes.
		b, contentType, err := transport.EncodePayload(payload)
		if err != nil {
			call.err = fmt.Errorf("httpclient: %w", err)
			return call
		}
		payload = transport.Encoded{Body: b, ContentType: contentType}
	}

	if rb.retry != nil {
		if err := rb.retry.Validate(); err != nil {
			call.err = err
			return call
		}
		call.policy = rb.retry
	} else {
		call.policy = rb.client.config.RetryPolicy
	}

	call.descriptor = (&transport.Descriptor{
		Method:   m,
		BaseURL:  rb.client.config.BaseURL,
		Segments: rb.segments,
		Query:    rb.query,
		Header:   rb.header,
		Payload:  payload,
	}).Clone()

	return call
}
