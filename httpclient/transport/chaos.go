package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"
)

// ErrChaosInjected is the cause of failures injected by Chaos.
var ErrChaosInjected = errors.New("chaos: simulated network error")

// ChaosConfig describes faults injected in front of a transport. It is meant
// for exercising retry policies and interceptors outside production.
//
//	t := transport.Chaos(nethttp.New(), transport.ChaosConfig{
//	    Latency:    200 * time.Millisecond,
//	    ErrorRate:  0.1,
//	    StatusRate: 0.05,
//	    StatusCode: http.StatusServiceUnavailable,
//	})
type ChaosConfig struct {
	// Latency delays every attempt.
	Latency time.Duration

	// LatencyJitter adds a random delay in [0, LatencyJitter) on top of Latency.
	LatencyJitter time.Duration

	// ErrorRate is the probability (0.0-1.0) of failing with a network
	// error, status 0.
	ErrorRate float64

	// StatusRate is the probability (0.0-1.0) of answering StatusCode
	// without calling the wrapped transport.
	StatusRate float64
	StatusCode int

	// TimeoutRate is the probability (0.0-1.0) of hanging until ctx is done
	// or TimeoutAfter elapses, whichever comes first.
	TimeoutRate float64

	// TimeoutAfter bounds a simulated hang. Zero uses DefaultChaosTimeout.
	TimeoutAfter time.Duration
}

// DefaultChaosTimeout bounds simulated hangs when ChaosConfig.TimeoutAfter
// is zero, so contexts without a deadline still return.
const DefaultChaosTimeout = 30 * time.Second

// Delay returns the latency to apply to one attempt.
func (c ChaosConfig) Delay() time.Duration {
	d := c.Latency
	if c.LatencyJitter > 0 {
		d += rand.N(c.LatencyJitter) //nolint:gosec
	}
	return d
}

func roll(rate float64) bool {
	if rate <= 0 {
		return false
	}
	return rand.Float64() < rate //nolint:gosec
}

type chaosTransport struct {
	next   Transport
	config ChaosConfig
}

// Chaos wraps next with fault injection. The wrapper reports next's name.
func Chaos(next Transport, cfg ChaosConfig) Transport {
	return &chaosTransport{next: next, config: cfg}
}

func (t *chaosTransport) Name() string {
	return t.next.Name()
}

func (t *chaosTransport) Do(ctx context.Context, d *Descriptor) (*Result, error) {
	if roll(t.config.TimeoutRate) {
		hang := t.config.TimeoutAfter
		if hang <= 0 {
			hang = DefaultChaosTimeout
		}
		timer := time.NewTimer(hang)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, &Error{Err: ctx.Err()}
		case <-timer.C:
			return nil, &Error{Err: fmt.Errorf("simulated timeout after %s: %w", hang, context.DeadlineExceeded)}
		}
	}

	if roll(t.config.ErrorRate) {
		return nil, &Error{Err: &net.OpError{Op: "dial", Net: "tcp", Err: ErrChaosInjected}}
	}

	if delay := t.config.Delay(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, &Error{Err: ctx.Err()}
		}
	}

	if t.config.StatusCode != 0 && roll(t.config.StatusRate) {
		return nil, StatusError(t.config.StatusCode, nil, nil)
	}

	return t.next.Do(ctx, d)
}
