package nethttp

import (
	"fmt"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ http.RoundTripper = (*instrumentedTransport)(nil)

// instrumentedTransport traces and measures each round trip.
type instrumentedTransport struct {
	base         http.RoundTripper
	tracer       trace.Tracer
	metrics      *metrics
	propagator   propagation.TextMapPropagator
	attrs        []attribute.KeyValue
	traceNetwork bool
}

func newInstrumentedTransport(base http.RoundTripper, o *options) *instrumentedTransport {
	m, _ := newMetrics(o.meterProvider.Meter(scope))
	return &instrumentedTransport{
		base:    base,
		tracer:  o.tracerProvider.Tracer(scope),
		metrics: m,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		attrs:        o.baseAttributes(),
		traceNetwork: o.networkTrace,
	}
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx, span := t.tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.requestAttributes(req)...),
	)
	defer span.End()

	t.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	t.metrics.recordActiveStart(ctx, t.attrs)
	defer t.metrics.recordActiveEnd(ctx, t.attrs)

	var nt *networkTrace
	if t.traceNetwork {
		nt = &networkTrace{}
		ctx = httptrace.WithClientTrace(ctx, nt.clientTrace())
	}

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	elapsed := time.Since(start)

	if nt != nil {
		nt.addEvents(span)
		nt.recordMetrics(ctx, t.metrics, t.attrs)
	}

	if err != nil {
		errorType := classifyError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", errorType))
		t.metrics.recordError(ctx, errorType, t.attrs)
		t.metrics.recordDuration(ctx, elapsed, t.durationAttributes(req, 0, errorType))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.String("network.protocol.version", protocolVersion(resp.Proto)),
	)
	errorType := ""
	if resp.StatusCode >= 400 {
		errorType = strconv.Itoa(resp.StatusCode)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		span.SetAttributes(attribute.String("error.type", errorType))
	}
	t.metrics.recordDuration(ctx, elapsed, t.durationAttributes(req, resp.StatusCode, errorType))

	return resp, nil
}

func (t *instrumentedTransport) requestAttributes(req *http.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(t.attrs)+6)
	attrs = append(attrs, t.attrs...)
	attrs = append(attrs,
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL.String()),
		attribute.String("url.scheme", req.URL.Scheme),
	)
	attrs = append(attrs, serverAttributes(req)...)
	if req.ContentLength > 0 {
		attrs = append(attrs, attribute.Int64("http.request.body.size", req.ContentLength))
	}
	return attrs
}

func (t *instrumentedTransport) durationAttributes(
	req *http.Request,
	statusCode int,
	errorType string,
) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(t.attrs)+5)
	attrs = append(attrs, t.attrs...)
	attrs = append(attrs, attribute.String("http.request.method", req.Method))
	attrs = append(attrs, serverAttributes(req)...)
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", statusCode))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String("error.type", errorType))
	}
	return attrs
}

func serverAttributes(req *http.Request) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if host := req.URL.Hostname(); host != "" {
		attrs = append(attrs, attribute.String("server.address", host))
	}

	port, err := strconv.Atoi(req.URL.Port())
	if err != nil {
		switch req.URL.Scheme {
		case "http":
			port = 80
		case "https":
			port = 443
		default:
			return attrs
		}
	}
	return append(attrs, attribute.Int("server.port", port))
}

// protocolVersion turns "HTTP/1.1" into "1.1" and "HTTP/2.0" into "2".
func protocolVersion(proto string) string {
	v := strings.TrimPrefix(proto, "HTTP/")
	if v == "2.0" {
		return "2"
	}
	return v
}
