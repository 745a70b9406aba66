package config

import (
	"fmt"

	"github.com/kroma-labs/courier/httpclient"
	"github.com/kroma-labs/courier/httpclient/transport"
	"github.com/kroma-labs/courier/httpclient/transport/fasthttp"
	"github.com/kroma-labs/courier/httpclient/transport/nethttp"
)

// NewTransport builds the transport adapter named by s.Transport, wrapped
// with fault injection when s.Chaos is set.
func (s *Settings) NewTransport() (transport.Transport, error) {
	t, err := s.baseTransport()
	if err != nil {
		return nil, err
	}
	if s.Chaos.enabled() {
		t = transport.Chaos(t, transport.ChaosConfig{
			Latency:    s.Chaos.Latency,
			ErrorRate:  s.Chaos.ErrorRate,
			StatusRate: s.Chaos.StatusRate,
			StatusCode: s.Chaos.StatusCode,
		})
	}
	return t, nil
}

func (s *Settings) baseTransport() (transport.Transport, error) {
	switch s.Transport {
	case TransportNetHTTP, "":
		cfg, err := profile(s.Profile)
		if err != nil {
			return nil, err
		}
		if s.Timeout > 0 {
			cfg.Timeout = s.Timeout
		}
		return nethttp.New(
			nethttp.WithConfig(cfg),
			nethttp.WithServiceName(s.ServiceName),
		), nil
	case TransportFastHTTP:
		opts := []fasthttp.Option{}
		if s.Timeout > 0 {
			opts = append(opts, fasthttp.WithTimeout(s.Timeout))
		}
		return fasthttp.New(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidSettings, s.Transport)
	}
}

func profile(name string) (nethttp.Config, error) {
	switch name {
	case ProfileDefault, "":
		return nethttp.DefaultConfig(), nil
	case ProfileHighThroughput:
		return nethttp.HighThroughputConfig(), nil
	case ProfileLowLatency:
		return nethttp.LowLatencyConfig(), nil
	default:
		return nethttp.Config{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidSettings, name)
	}
}

// RetryPolicy returns the configured policy, or false when retries are off.
func (s *Settings) RetryPolicy() (httpclient.RetryPolicy, bool) {
	if !s.Retry.Enabled {
		return httpclient.RetryPolicy{}, false
	}
	return httpclient.RetryPolicy{
		MaxAttempts: s.Retry.MaxAttempts,
		Interval:    s.Retry.Interval,
		Exponential: s.Retry.Exponential,
		MaxInterval: s.Retry.MaxInterval,
		StatusCodes: s.Retry.StatusCodes,
	}, true
}

// Options translates s into client options.
func (s *Settings) Options() ([]httpclient.Option, error) {
	t, err := s.NewTransport()
	if err != nil {
		return nil, err
	}

	opts := []httpclient.Option{
		httpclient.WithTransport(t),
		httpclient.WithDebug(s.Debug),
	}
	if s.ServiceName != "" {
		opts = append(opts, httpclient.WithServiceName(s.ServiceName))
	}
	for name, value := range s.Headers {
		opts = append(opts, httpclient.WithDefaultHeader(name, value))
	}
	if p, ok := s.RetryPolicy(); ok {
		opts = append(opts, httpclient.WithRetryPolicy(p))
	}
	return opts, nil
}

// NewClient creates a client from s. Options in extra are applied after the
// configured ones, so they can add interceptors or override settings.
//
//	settings, err := config.Load("courier.yaml")
//	if err != nil {
//	    return err
//	}
//	client, err := settings.NewClient(httpclient.WithInterceptors(hooks))
func (s *Settings) NewClient(extra ...httpclient.Option) (*httpclient.Client, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	return httpclient.New(s.BaseURL, append(opts, extra...)...)
}
