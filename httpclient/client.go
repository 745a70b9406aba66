package httpclient

import (
	"net/http"
	"net/url"
	"strings"
)

// Client builds and executes requests against one base URL.
//
// A Client is safe for concurrent use. Its transport, interceptors and
// retry policy are fixed at construction and shared read-only by all calls.
//
//	client, err := httpclient.New("https://api.example.com",
//	    httpclient.WithRetryPolicy(httpclient.DefaultRetryPolicy()),
//	    httpclient.WithServiceName("user-service"),
//	)
//
//	user, err := client.Request().
//	    Path("users", "42").
//	    BearerAuthorization(token).
//	    Get().
//	    Response(ctx)
type Client struct {
	config *internalConfig
}

// New creates a Client for baseURL.
//
// It fails with ErrMissingBaseURL when baseURL is empty and with an error
// wrapping ErrInvalidRetryPolicy when WithRetryPolicy got an invalid policy.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, err
	}

	cfg := newConfig(baseURL, opts...)
	if cfg.RetryPolicy != nil {
		if err := cfg.RetryPolicy.Validate(); err != nil {
			return nil, err
		}
	}

	return &Client{config: cfg}, nil
}

// Request starts a new request. Each call returns an independent builder.
func (c *Client) Request() *RequestBuilder {
	return &RequestBuilder{
		client: c,
		header: c.config.DefaultHeaders.Clone(),
		query:  make(url.Values),
	}
}

// BaseURL returns the base URL the client was created with.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// TransportName returns the name of the selected transport adapter.
func (c *Client) TransportName() string {
	return c.config.Transport.Name()
}

// RetryPolicy returns the client-wide policy, if any.
func (c *Client) RetryPolicy() (RetryPolicy, bool) {
	if c.config.RetryPolicy == nil {
		return RetryPolicy{}, false
	}
	return *c.config.RetryPolicy, true
}

// DefaultHeaders returns a copy of the headers sent on every call.
func (c *Client) DefaultHeaders() http.Header {
	return c.config.DefaultHeaders.Clone()
}
