// Package nethttp is the baseline transport adapter, built on net/http.
//
// Every attempt gets its own client span with W3C trace context injected
// into the outgoing headers, optional httptrace network timing events and
// duration/DNS/TLS/TTFB metrics.
//
//	tr := nethttp.New(
//	    nethttp.WithConfig(nethttp.LowLatencyConfig()),
//	    nethttp.WithServiceName("billing"),
//	)
//	client, err := httpclient.New("https://api.example.com", httpclient.WithTransport(tr))
package nethttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// Name identifies the adapter in logs, metrics and configuration files.
const Name = "nethttp"

// Transport dispatches descriptors through an instrumented http.Client.
type Transport struct {
	client *http.Client
}

var _ transport.Transport = (*Transport)(nil)

// New builds the adapter from the given options.
func New(opts ...Option) *Transport {
	o := newOptions(opts...)

	base := o.base
	if base == nil {
		base = o.buildTransport()
	}

	return &Transport{
		client: &http.Client{
			Transport: newInstrumentedTransport(base, o),
			Timeout:   o.config.Timeout,
		},
	}
}

// Name returns "nethttp".
func (t *Transport) Name() string {
	return Name
}

// HTTP exposes the underlying instrumented client.
func (t *Transport) HTTP() *http.Client {
	return t.client
}

// Do performs one HTTP exchange.
func (t *Transport) Do(ctx context.Context, d *transport.Descriptor) (*transport.Result, error) {
	req, err := newRequest(ctx, d)
	if err != nil {
		return nil, &transport.Error{Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &transport.Error{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transport.Error{
			Err:        fmt.Errorf("read response body: %w", err),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
		}
	}

	body := transport.DecodeBody(raw, resp.Header.Get("Content-Type"))

	if !transport.IsSuccess(resp.StatusCode) {
		return nil, transport.StatusError(resp.StatusCode, resp.Header, body)
	}

	return &transport.Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		RawBody:    raw,
	}, nil
}

func newRequest(ctx context.Context, d *transport.Descriptor) (*http.Request, error) {
	target, err := d.URL()
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	payload, contentType, err := transport.EncodePayload(d.Payload)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, string(d.Method), target, body)
	if err != nil {
		return nil, err
	}

	for name, values := range d.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}
