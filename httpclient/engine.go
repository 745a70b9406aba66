package httpclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// Call outcomes reported on spans and metrics.
const (
	outcomeSuccess   = "success"
	outcomeRecovered = "recovered"
	outcomeFailed    = "failed"
)

// execute drives one call through attempts, waits and interception.
//
// Every attempt dispatches the same descriptor. A failure is retried while
// attempts remain and the policy accepts its status code; the wait comes
// from the policy. The error interceptor runs once, on the final failure.
// Cancelling ctx aborts the call, including a pending wait.
func (c *Client) execute(ctx context.Context, call *Call) (*Response, error) {
	cfg := c.config
	d := call.descriptor

	policy := NoRetryPolicy()
	if call.policy != nil {
		policy = *call.policy
	}

	target, _ := d.URL()
	attrs := append(cfg.baseAttributes(), attribute.String("http.request.method", string(d.Method)))

	start := time.Now()
	ctx, span := cfg.Tracer.Start(ctx, "httpclient "+string(d.Method),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(
			attribute.String("url.full", target),
			attribute.Int("retry.max_attempts", policy.MaxAttempts),
		),
	)
	defer span.End()

	cfg.Metrics.recordActiveStart(ctx, attrs)
	defer cfg.Metrics.recordActiveEnd(ctx, attrs)

	logger := cfg.Logger.With().
		Str("method", string(d.Method)).
		Str("url", target).
		Str("transport", cfg.Transport.Name()).
		Logger()
	logger.Debug().Int("max_attempts", policy.MaxAttempts).Msg("http call started")

	var (
		attempts int
		last     *transport.Error
	)

	res, err := backoff.Retry(ctx,
		func() (*transport.Result, error) {
			attempts++
			res, err := dispatch(ctx, cfg.Transport, d)
			if err == nil {
				return res, nil
			}

			last = transport.AsError(err)
			logger.Debug().
				Int("attempt", attempts).
				Int("status", last.StatusCode).
				Err(last.Err).
				Msg("http attempt failed")

			if !policy.ShouldRetry(last.StatusCode) {
				return nil, backoff.Permanent(last)
			}
			return nil, last
		},
		backoff.WithBackOff(newPolicyBackOff(policy)),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			recordRetryEvent(span, attempts, err, next)
			cfg.Metrics.recordRetryAttempt(ctx, attrs, attempts)
			logRetry(logger, attempts, err, next)
		}),
	)

	span.SetAttributes(attribute.Int("http.attempts", attempts))
	cfg.Metrics.recordAttempts(ctx, attempts, attrs)

	if err == nil {
		body, ierr := cfg.Interceptors.ApplyResponse(res.Body, res)
		if ierr != nil {
			return nil, c.fail(ctx, span, logger, attrs, start, attempts, ierr)
		}

		resp := &Response{
			Body:       body,
			StatusCode: res.StatusCode,
			Header:     res.Header,
			RawBody:    res.RawBody,
			Attempts:   attempts,
			Duration:   time.Since(start),
		}
		c.finish(ctx, span, attrs, outcomeSuccess, resp.Duration)
		logger.Debug().
			Int("status", res.StatusCode).
			Int("attempts", attempts).
			Dur("duration", resp.Duration).
			Msg("http call completed")
		return resp, nil
	}

	final := finalError(err, last)
	if attempts > 1 {
		cfg.Metrics.recordRetryExhausted(ctx, attrs)
	}

	value, herr := cfg.Interceptors.ApplyError(final)
	if herr != nil {
		return nil, c.fail(ctx, span, logger, attrs, start, attempts, herr)
	}

	resp := &Response{
		Body:       value,
		StatusCode: final.StatusCode,
		Header:     final.Header,
		Attempts:   attempts,
		Recovered:  true,
		Duration:   time.Since(start),
	}
	span.AddEvent("http.recovered", trace.WithAttributes(
		attribute.Int("http.response.status_code", final.StatusCode),
	))
	c.finish(ctx, span, attrs, outcomeRecovered, resp.Duration)
	logger.Debug().
		Int("status", final.StatusCode).
		Int("attempts", attempts).
		Msg("http call recovered by error interceptor")
	return resp, nil
}

// dispatch runs one attempt. A transport that reports a non-2xx result
// without an error is normalized to a status error.
func dispatch(ctx context.Context, t transport.Transport, d *transport.Descriptor) (*transport.Result, error) {
	res, err := t.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &transport.Error{Err: errors.New("transport returned no result")}
	}
	if !transport.IsSuccess(res.StatusCode) {
		return nil, transport.StatusError(res.StatusCode, res.Header, res.Body)
	}
	return res, nil
}

// finalError turns what backoff.Retry returned into the failure reported
// to the error interceptor. Retry hands back the context cause when ctx is
// cancelled between attempts; the last transport failure is kept with it.
func finalError(err error, last *transport.Error) *transport.Error {
	var te *transport.Error
	if errors.As(err, &te) {
		return te
	}
	if last == nil {
		return &transport.Error{Err: err}
	}
	if errors.Is(last, err) {
		return last
	}
	return &transport.Error{
		Err:        fmt.Errorf("%w (last failure: %w)", err, last.Err),
		StatusCode: last.StatusCode,
		Body:       last.Body,
		Header:     last.Header,
	}
}

func (c *Client) finish(
	ctx context.Context,
	span trace.Span,
	attrs []attribute.KeyValue,
	outcome string,
	elapsed time.Duration,
) {
	span.SetAttributes(attribute.String("http.call.outcome", outcome))
	if outcome == outcomeRecovered {
		c.config.Metrics.recordRecovered(ctx, attrs)
	}
	c.config.Metrics.recordCallDuration(ctx, elapsed, outcomeAttributes(attrs, outcome))
}

func (c *Client) fail(
	ctx context.Context,
	span trace.Span,
	logger zerolog.Logger,
	attrs []attribute.KeyValue,
	start time.Time,
	attempts int,
	err error,
) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.finish(ctx, span, attrs, outcomeFailed, time.Since(start))
	logger.Warn().Err(err).Int("attempts", attempts).Msg("http call failed")
	return err
}

func outcomeAttributes(attrs []attribute.KeyValue, outcome string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs)+1)
	out = append(out, attrs...)
	return append(out, attribute.String("http.call.outcome", outcome))
}

// recordRetryEvent adds an http.retry span event for a scheduled retry.
func recordRetryEvent(span trace.Span, attempt int, err error, next time.Duration) {
	if !span.IsRecording() {
		return
	}
	span.AddEvent("http.retry", trace.WithAttributes(
		attribute.Int("retry.attempt", attempt),
		attribute.Int64("retry.delay_ms", next.Milliseconds()),
		attribute.String("retry.reason", retryReason(err)),
	))
}

func retryReason(err error) string {
	te := transport.AsError(err)
	if te == nil {
		return "unknown"
	}
	if te.StatusCode == 0 {
		return "network_error"
	}
	return "status_" + strconv.Itoa(te.StatusCode)
}
