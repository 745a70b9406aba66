package nethttp

import (
	"net"
	"net/http"
	"time"
)

// Config tunes the pooled http.Transport behind the adapter.
type Config struct {
	// Timeout bounds one attempt end to end. Zero disables it.
	Timeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	// MaxConnsPerHost caps idle plus active connections per host. Zero is unlimited.
	MaxConnsPerHost int
	IdleConnTimeout time.Duration

	TLSHandshakeTimeout   time.Duration
	ExpectContinueTimeout time.Duration
	// ResponseHeaderTimeout of zero falls back to Timeout.
	ResponseHeaderTimeout time.Duration

	DialTimeout time.Duration
	KeepAlive   time.Duration

	WriteBufferSize int
	ReadBufferSize  int

	DisableKeepAlives  bool
	DisableCompression bool
	ForceHTTP2         bool
}

// DefaultConfig returns balanced settings for typical service-to-service calls.
func DefaultConfig() Config {
	return Config{
		Timeout: 15 * time.Second,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DialTimeout: 5 * time.Second,
		KeepAlive:   30 * time.Second,

		WriteBufferSize: 64 * 1024,
		ReadBufferSize:  64 * 1024,

		DisableCompression: true,
	}
}

// HighThroughputConfig favors large pools and buffers for gateways and
// batch pipelines calling the same hosts heavily.
func HighThroughputConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Second
	cfg.MaxIdleConns = 500
	cfg.MaxIdleConnsPerHost = 100
	cfg.MaxConnsPerHost = 0
	cfg.IdleConnTimeout = 120 * time.Second
	cfg.WriteBufferSize = 128 * 1024
	cfg.ReadBufferSize = 128 * 1024
	return cfg
}

// LowLatencyConfig fails fast: short dial, handshake and header timeouts.
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxIdleConns = 50
	cfg.MaxIdleConnsPerHost = 25
	cfg.MaxConnsPerHost = 50
	cfg.IdleConnTimeout = 60 * time.Second
	cfg.TLSHandshakeTimeout = 5 * time.Second
	cfg.ExpectContinueTimeout = 500 * time.Millisecond
	cfg.ResponseHeaderTimeout = 3 * time.Second
	cfg.DialTimeout = 2 * time.Second
	cfg.KeepAlive = 15 * time.Second
	cfg.WriteBufferSize = 32 * 1024
	cfg.ReadBufferSize = 32 * 1024
	cfg.ForceHTTP2 = true
	return cfg
}

// buildTransport creates the pooled base transport.
func (o *options) buildTransport() *http.Transport {
	c := o.config

	dialer := &net.Dialer{
		Timeout:   c.DialTimeout,
		KeepAlive: c.KeepAlive,
	}

	tr := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		MaxConnsPerHost:       c.MaxConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   c.TLSHandshakeTimeout,
		ResponseHeaderTimeout: c.ResponseHeaderTimeout,
		ExpectContinueTimeout: c.ExpectContinueTimeout,
		DisableKeepAlives:     c.DisableKeepAlives,
		DisableCompression:    c.DisableCompression,
		WriteBufferSize:       c.WriteBufferSize,
		ReadBufferSize:        c.ReadBufferSize,
		TLSClientConfig:       o.tlsConfig,
		ForceAttemptHTTP2:     c.ForceHTTP2,
	}

	if o.proxyURL != nil {
		tr.Proxy = http.ProxyURL(o.proxyURL)
	} else {
		tr.Proxy = http.ProxyFromEnvironment
	}

	return tr
}
