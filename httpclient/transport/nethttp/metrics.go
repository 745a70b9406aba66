package nethttp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds per-attempt instruments. A nil *metrics records nothing.
type metrics struct {
	duration       metric.Float64Histogram
	dns            metric.Float64Histogram
	connect        metric.Float64Histogram
	tls            metric.Float64Histogram
	ttfb           metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
	errors         metric.Int64Counter
}

var fastBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	if m.duration, err = meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of a single HTTP attempt in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
		),
	); err != nil {
		return nil, err
	}
	if m.dns, err = meter.Float64Histogram(
		"http.client.dns.duration",
		metric.WithDescription("DNS lookup duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(fastBuckets...),
	); err != nil {
		return nil, err
	}
	if m.connect, err = meter.Float64Histogram(
		"http.client.connection.duration",
		metric.WithDescription("Time to establish a TCP connection in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(fastBuckets...),
	); err != nil {
		return nil, err
	}
	if m.tls, err = meter.Float64Histogram(
		"http.client.tls.duration",
		metric.WithDescription("TLS handshake duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(fastBuckets...),
	); err != nil {
		return nil, err
	}
	if m.ttfb, err = meter.Float64Histogram(
		"http.client.ttfb",
		metric.WithDescription("Time to first response byte in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.activeRequests, err = meter.Int64UpDownCounter(
		"http.client.active_requests",
		metric.WithDescription("Number of in-flight HTTP attempts"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter(
		"http.client.request.error",
		metric.WithDescription("Number of HTTP attempts that failed without a response"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordDNS(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.dns.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordConnect(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.connect.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordTLS(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.tls.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordTTFB(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.ttfb.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordError(ctx context.Context, errorType string, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	all := append(append([]attribute.KeyValue{}, attrs...), attribute.String("error.type", errorType))
	m.errors.Add(ctx, 1, metric.WithAttributes(all...))
}
