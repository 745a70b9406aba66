// Package fasthttp adapts github.com/valyala/fasthttp to the transport contract.
//
// fasthttp has no context support; the adapter maps a context deadline onto
// DoDeadline and otherwise falls back to the configured timeout.
package fasthttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// Name identifies the adapter in logs, metrics and configuration files.
const Name = "fasthttp"

// DefaultTimeout bounds each attempt when the context carries no deadline.
const DefaultTimeout = 15 * time.Second

// Transport dispatches descriptors through a *fasthttp.Client.
type Transport struct {
	client  *fasthttp.Client
	timeout time.Duration
}

var _ transport.Transport = (*Transport)(nil)

// Option configures the adapter.
type Option func(*Transport)

// WithClient replaces the underlying fasthttp client.
func WithClient(c *fasthttp.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// WithDial overrides how connections are opened, e.g. for in-memory listeners.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(t *Transport) {
		t.client.Dial = dial
	}
}

// New builds the adapter.
func New(opts ...Option) *Transport {
	t := &Transport{
		client: &fasthttp.Client{
			Name:                "courier",
			MaxConnsPerHost:     100,
			MaxIdleConnDuration: 90 * time.Second,
		},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns "fasthttp".
func (t *Transport) Name() string {
	return Name
}

// Do performs one HTTP exchange.
func (t *Transport) Do(ctx context.Context, d *transport.Descriptor) (*transport.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Err: err}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := buildRequest(req, d); err != nil {
		return nil, &transport.Error{Err: err}
	}

	if err := t.do(ctx, req, resp); err != nil {
		return nil, &transport.Error{Err: err}
	}

	statusCode := resp.StatusCode()
	header := responseHeader(&resp.Header)
	// resp is released on return; keep our own copy of the body.
	raw := append([]byte(nil), resp.Body()...)

	body := transport.DecodeBody(raw, header.Get("Content-Type"))
	if !transport.IsSuccess(statusCode) {
		return nil, transport.StatusError(statusCode, header, body)
	}

	return &transport.Result{
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
		RawBody:    raw,
	}, nil
}

func (t *Transport) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return t.client.DoDeadline(req, resp, deadline)
	}
	if t.timeout > 0 {
		return t.client.DoTimeout(req, resp, t.timeout)
	}
	return t.client.Do(req, resp)
}

func buildRequest(req *fasthttp.Request, d *transport.Descriptor) error {
	target, err := d.URL()
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	req.SetRequestURI(target)
	req.Header.SetMethod(string(d.Method))

	for name, values := range d.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	payload, contentType, err := transport.EncodePayload(d.Payload)
	if err != nil {
		return err
	}
	if payload != nil {
		req.SetBody(payload)
		if contentType != "" && d.Header.Get("Content-Type") == "" {
			req.Header.SetContentType(contentType)
		}
	}
	return nil
}

func responseHeader(h *fasthttp.ResponseHeader) http.Header {
	out := make(http.Header)
	h.VisitAll(func(key, value []byte) {
		out.Add(string(key), string(value))
	})
	if ct := h.ContentType(); len(ct) > 0 {
		out.Set("Content-Type", string(ct))
	}
	return out
}
