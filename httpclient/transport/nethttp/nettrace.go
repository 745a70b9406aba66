package nethttp

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http/httptrace"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Values of the error.type attribute for failures without a status code.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeDNS               = "dns_error"
	ErrorTypeTLS               = "tls_error"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeEOF               = "eof"
	ErrorTypeUnknown           = "unknown"
)

// networkTrace collects httptrace timestamps for one attempt.
type networkTrace struct {
	dnsStart, dnsDone         time.Time
	connectStart, connectDone time.Time
	tlsStart, tlsDone         time.Time
	gotConn                   time.Time
	wroteRequest              time.Time
	firstByte                 time.Time

	reused     bool
	remoteAddr string
	dnsAddrs   []string
	tlsProto   string
}

func (nt *networkTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			nt.gotConn = time.Now()
			nt.reused = info.Reused
			if info.Conn != nil && info.Conn.RemoteAddr() != nil {
				nt.remoteAddr = info.Conn.RemoteAddr().String()
			}
		},
		DNSStart: func(httptrace.DNSStartInfo) { nt.dnsStart = time.Now() },
		DNSDone: func(info httptrace.DNSDoneInfo) {
			nt.dnsDone = time.Now()
			for _, addr := range info.Addrs {
				nt.dnsAddrs = append(nt.dnsAddrs, addr.String())
			}
		},
		ConnectStart:      func(_, _ string) { nt.connectStart = time.Now() },
		ConnectDone:       func(_, _ string, _ error) { nt.connectDone = time.Now() },
		TLSHandshakeStart: func() { nt.tlsStart = time.Now() },
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			nt.tlsDone = time.Now()
			nt.tlsProto = state.NegotiatedProtocol
		},
		WroteRequest:         func(httptrace.WroteRequestInfo) { nt.wroteRequest = time.Now() },
		GotFirstResponseByte: func() { nt.firstByte = time.Now() },
	}
}

func (nt *networkTrace) addEvents(span trace.Span) {
	if !nt.dnsDone.IsZero() && !nt.dnsStart.IsZero() {
		span.AddEvent("dns.done", trace.WithTimestamp(nt.dnsDone), trace.WithAttributes(
			attribute.Int64("dns.duration_ms", nt.dnsDone.Sub(nt.dnsStart).Milliseconds()),
			attribute.StringSlice("dns.addresses", nt.dnsAddrs),
		))
	}
	if !nt.connectDone.IsZero() && !nt.connectStart.IsZero() {
		span.AddEvent("connect.done", trace.WithTimestamp(nt.connectDone), trace.WithAttributes(
			attribute.Int64("connect.duration_ms", nt.connectDone.Sub(nt.connectStart).Milliseconds()),
		))
	}
	if !nt.tlsDone.IsZero() && !nt.tlsStart.IsZero() {
		span.AddEvent("tls.done", trace.WithTimestamp(nt.tlsDone), trace.WithAttributes(
			attribute.Int64("tls.duration_ms", nt.tlsDone.Sub(nt.tlsStart).Milliseconds()),
			attribute.String("tls.protocol", nt.tlsProto),
		))
	}
	if !nt.gotConn.IsZero() {
		span.AddEvent("got_conn", trace.WithTimestamp(nt.gotConn), trace.WithAttributes(
			attribute.Bool("connection.reused", nt.reused),
			attribute.String("network.peer.address", nt.remoteAddr),
		))
	}
	if !nt.firstByte.IsZero() && !nt.wroteRequest.IsZero() {
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstByte), trace.WithAttributes(
			attribute.Int64("ttfb_ms", nt.firstByte.Sub(nt.wroteRequest).Milliseconds()),
		))
	}
}

func (nt *networkTrace) recordMetrics(ctx context.Context, m *metrics, attrs []attribute.KeyValue) {
	if !nt.dnsDone.IsZero() && !nt.dnsStart.IsZero() {
		m.recordDNS(ctx, nt.dnsDone.Sub(nt.dnsStart), attrs)
	}
	if !nt.connectDone.IsZero() && !nt.connectStart.IsZero() {
		m.recordConnect(ctx, nt.connectDone.Sub(nt.connectStart), attrs)
	}
	if !nt.tlsDone.IsZero() && !nt.tlsStart.IsZero() {
		m.recordTLS(ctx, nt.tlsDone.Sub(nt.tlsStart), attrs)
	}
	if !nt.firstByte.IsZero() && !nt.wroteRequest.IsZero() {
		m.recordTTFB(ctx, nt.firstByte.Sub(nt.wroteRequest), attrs)
	}
}

// classifyError maps a round-trip failure to an error.type value.
func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ErrorTypeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeDNS
	}
	var recordErr *tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) {
		return ErrorTypeTLS
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorTypeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ErrorTypeConnectionReset
	case errors.Is(err, io.EOF):
		return ErrorTypeEOF
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(msg, "connection refused"):
		return ErrorTypeConnectionRefused
	case strings.Contains(msg, "connection reset"):
		return ErrorTypeConnectionReset
	case strings.Contains(msg, "no such host"):
		return ErrorTypeDNS
	case strings.Contains(msg, "x509"), strings.Contains(msg, "certificate"):
		return ErrorTypeTLS
	}
	return ErrorTypeUnknown
}
