package httpclient

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/courier/httpclient/transport"
	"github.com/kroma-labs/courier/httpclient/transport/nethttp"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/kroma-labs/courier/httpclient"

// internalConfig is the configuration a Client owns. It is built once by New
// and only read afterwards, so calls may share it across goroutines.
type internalConfig struct {
	BaseURL        string
	Transport      transport.Transport
	Interceptors   *Interceptors
	RetryPolicy    *RetryPolicy
	DefaultHeaders http.Header

	Logger zerolog.Logger

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Metrics        *metrics
	ServiceName    string
}

func newConfig(baseURL string, opts ...Option) *internalConfig {
	cfg := &internalConfig{
		BaseURL:        baseURL,
		DefaultHeaders: make(http.Header),
		Logger:         zerolog.Nop(),
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Transport == nil {
		cfg.Transport = nethttp.New(
			nethttp.WithTracerProvider(cfg.TracerProvider),
			nethttp.WithMeterProvider(cfg.MeterProvider),
			nethttp.WithServiceName(cfg.ServiceName),
		)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Metrics, _ = newMetrics(cfg.MeterProvider.Meter(scope))

	return cfg
}

// baseAttributes returns attributes shared by all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("http.client.transport", cfg.Transport.Name())}
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// Option configures a Client.
type Option func(*internalConfig)

// WithTransport selects the backend that performs HTTP exchanges. The last
// call wins. Defaults to the net/http adapter.
//
//	client, err := httpclient.New(baseURL, httpclient.WithTransport(fasthttp.New()))
func WithTransport(t transport.Transport) Option {
	return func(cfg *internalConfig) {
		cfg.Transport = t
	}
}

// WithInterceptors installs request, response and error hooks. The chain is
// copied, so later edits to i do not affect the client.
func WithInterceptors(i *Interceptors) Option {
	return func(cfg *internalConfig) {
		if i == nil {
			cfg.Interceptors = nil
			return
		}
		c := *i
		cfg.Interceptors = &c
	}
}

// WithRetryPolicy enables retries for every call of the client. Without it
// calls are attempted once unless the request sets its own policy.
// New rejects invalid policies.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(cfg *internalConfig) {
		p.StatusCodes = append([]int(nil), p.StatusCodes...)
		cfg.RetryPolicy = &p
	}
}

// WithDefaultHeader adds a header sent on every call. Request headers with
// the same name take precedence.
func WithDefaultHeader(name, value string) Option {
	return func(cfg *internalConfig) {
		cfg.DefaultHeaders.Add(name, value)
	}
}

// WithLogger sets the zerolog logger for call and retry events.
// Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = l
	}
}

// WithDebug logs every call, attempt and retry at debug level to stdout.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		if enabled {
			cfg.Logger = debugLogger(os.Stdout)
		}
	}
}

// WithServiceName tags spans and metrics with http.client.name. It is also
// passed to the default transport.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets the provider for call spans.
// Defaults to otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets the provider for call metrics.
// Defaults to otel.GetMeterProvider().
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}
