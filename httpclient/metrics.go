package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the call-level instruments. Per-attempt network metrics
// belong to the transport. All record methods are no-ops on a nil receiver.
type metrics struct {
	// callDuration covers every attempt and wait of a call.
	callDuration metric.Float64Histogram

	// callAttempts is the number of dispatches one call needed.
	callAttempts metric.Int64Histogram

	activeCalls metric.Int64UpDownCounter

	// retryAttempts counts scheduled retries.
	retryAttempts metric.Int64Counter

	// retryExhausted counts calls that retried and still failed.
	retryExhausted metric.Int64Counter

	// recovered counts failures the error interceptor turned into results.
	recovered metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.callDuration, err = meter.Float64Histogram(
		"http.client.call.duration",
		metric.WithDescription("Duration of HTTP calls including retries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
		),
	)
	if err != nil {
		return nil, err
	}

	m.callAttempts, err = meter.Int64Histogram(
		"http.client.call.attempts",
		metric.WithDescription("Number of attempts per HTTP call"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.activeCalls, err = meter.Int64UpDownCounter(
		"http.client.active_calls",
		metric.WithDescription("Number of HTTP calls in progress"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.retryAttempts, err = meter.Int64Counter(
		"http.client.retry.attempts",
		metric.WithDescription("Number of HTTP client retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.retryExhausted, err = meter.Int64Counter(
		"http.client.retry.exhausted",
		metric.WithDescription("Number of calls that failed after retrying"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.recovered, err = meter.Int64Counter(
		"http.client.interceptor.recovered",
		metric.WithDescription("Number of failed calls recovered by the error interceptor"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordCallDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil || m.callDuration == nil {
		return
	}
	m.callDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordAttempts(ctx context.Context, attempts int, attrs []attribute.KeyValue) {
	if m == nil || m.callAttempts == nil {
		return
	}
	m.callAttempts.Record(ctx, int64(attempts), metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeCalls == nil {
		return
	}
	m.activeCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeCalls == nil {
		return
	}
	m.activeCalls.Add(ctx, -1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordRetryAttempt(ctx context.Context, attrs []attribute.KeyValue, attempt int) {
	if m == nil || m.retryAttempts == nil {
		return
	}
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attrs...)
	all = append(all, attribute.Int("retry.attempt", attempt))
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(all...))
}

func (m *metrics) recordRetryExhausted(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.retryExhausted == nil {
		return
	}
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordRecovered(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.recovered == nil {
		return
	}
	m.recovered.Add(ctx, 1, metric.WithAttributes(attrs...))
}
