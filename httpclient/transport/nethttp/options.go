package nethttp

import (
	"crypto/tls"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/kroma-labs/courier/httpclient/transport/nethttp"

type options struct {
	config    Config
	base      http.RoundTripper
	tlsConfig *tls.Config
	proxyURL  *url.URL

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
	networkTrace   bool
}

// Option configures the net/http adapter.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		config:         DefaultConfig(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		networkTrace:   true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) baseAttributes() []attribute.KeyValue {
	if o.serviceName == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String("http.client.name", o.serviceName)}
}

// WithConfig replaces the pool and timeout settings.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithRoundTripper replaces the pooled base transport. Instrumentation still wraps it.
//
// Useful for tests against httptest servers or for reusing a shared transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// WithTLSConfig sets the TLS client configuration, e.g. for mutual TLS.
func WithTLSConfig(c *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = c
	}
}

// WithProxyURL routes every request through proxyURL instead of the
// HTTP_PROXY/HTTPS_PROXY environment.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(o *options) {
		o.proxyURL = proxyURL
	}
}

// WithTracerProvider sets the provider for per-attempt spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets the provider for network metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithServiceName tags spans and metrics with http.client.name.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

// WithoutNetworkTrace disables httptrace timing events (DNS, connect, TLS, TTFB).
func WithoutNetworkTrace() Option {
	return func(o *options) {
		o.networkTrace = false
	}
}
