package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kroma-labs/courier/httpclient/mocks"
	"github.com/kroma-labs/courier/httpclient/transport"
	"github.com/kroma-labs/courier/httpclient/transport/nethttp"
)

func newMockTransport(t *testing.T) *mocks.Transport {
	mt := mocks.NewTransport(t)
	mt.EXPECT().Name().Return("mock").Maybe()
	return mt
}

func okResult(body any) *transport.Result {
	return &transport.Result{StatusCode: http.StatusOK, Header: make(http.Header), Body: body}
}

func TestClient_Execute(t *testing.T) {
	errReset := errors.New("connection reset by peer")

	tests := []struct {
		name         string
		policy       *RetryPolicy
		mockFn       func(*mocks.Transport)
		wantErr      assert.ErrorAssertionFunc
		wantStatus   int
		wantAttempts int
	}{
		{
			name: "given successful first attempt, then returns body",
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(okResult(map[string]any{"name": "Alice"}), nil).Once()
			},
			wantErr:      assert.NoError,
			wantStatus:   http.StatusOK,
			wantAttempts: 1,
		},
		{
			name: "given no policy and failure, then attempted once",
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(nil, transport.StatusError(http.StatusServiceUnavailable, nil, nil)).Once()
			},
			wantErr:      assert.Error,
			wantStatus:   http.StatusServiceUnavailable,
			wantAttempts: 1,
		},
		{
			name:   "given permanent failure and 4 attempts, then attempted exactly 4 times",
			policy: ptr(fastRetry(4)),
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(nil, transport.StatusError(http.StatusInternalServerError, nil, nil)).Times(4)
			},
			wantErr:      assert.Error,
			wantStatus:   http.StatusInternalServerError,
			wantAttempts: 4,
		},
		{
			name:   "given status codes {500} and 401, then no retry",
			policy: ptr(fastRetry(5).ForStatusCodes(http.StatusInternalServerError)),
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(nil, transport.StatusError(http.StatusUnauthorized, nil, nil)).Once()
			},
			wantErr:      assert.Error,
			wantStatus:   http.StatusUnauthorized,
			wantAttempts: 1,
		},
		{
			name:   "given no restriction and 401, then retried up to max attempts",
			policy: ptr(fastRetry(3)),
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(nil, transport.StatusError(http.StatusUnauthorized, nil, nil)).Times(3)
			},
			wantErr:      assert.Error,
			wantStatus:   http.StatusUnauthorized,
			wantAttempts: 3,
		},
		{
			name:   "given network failure then success, then retries and succeeds",
			policy: ptr(fastRetry(3)),
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(nil, errReset).Once()
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(okResult("ok"), nil).Once()
			},
			wantErr:      assert.NoError,
			wantStatus:   http.StatusOK,
			wantAttempts: 2,
		},
		{
			name:   "given status codes and network failure, then no retry",
			policy: ptr(fastRetry(3).ForStatusCodes(http.StatusBadGateway)),
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(nil, errReset).Once()
			},
			wantErr: func(t assert.TestingT, err error, _ ...any) bool {
				return assert.ErrorIs(t, err, errReset)
			},
			wantStatus:   0,
			wantAttempts: 1,
		},
		{
			name:   "given transport returning non-2xx result, then treated as failure",
			policy: ptr(fastRetry(2).ForStatusCodes(http.StatusTooManyRequests)),
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(&transport.Result{StatusCode: http.StatusTooManyRequests}, nil).Once()
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(okResult(nil), nil).Once()
			},
			wantErr:      assert.NoError,
			wantStatus:   http.StatusOK,
			wantAttempts: 2,
		},
		{
			name:   "given predicate rejecting, then no retry",
			policy: ptr(fastRetry(3).When(RetryServerErrors)),
			mockFn: func(mt *mocks.Transport) {
				mt.EXPECT().Do(mock.Anything, mock.Anything).
					Return(nil, transport.StatusError(http.StatusBadRequest, nil, nil)).Once()
			},
			wantErr:      assert.Error,
			wantStatus:   http.StatusBadRequest,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mt := newMockTransport(t)
			tt.mockFn(mt)

			opts := []Option{}
			if tt.policy != nil {
				opts = append(opts, WithRetryPolicy(*tt.policy))
			}
			client := newTestClient(t, mt, opts...)

			resp, err := client.Request().Path("users", "42").Get().Execute(context.Background())
			tt.wantErr(t, err)

			if err != nil {
				te := transport.AsError(err)
				require.NotNil(t, te)
				assert.Equal(t, tt.wantStatus, te.StatusCode)
				return
			}
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantAttempts, resp.Attempts)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestClient_Execute_GetUser(t *testing.T) {
	mt := transport.NewMockTransport().StubPath("/users/42", http.StatusOK, `{"name":"Alice"}`)
	client := newTestClient(t, mt)

	body, err := client.Request().Path("users", "42").Get().Response(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Alice"}, body)

	d := mt.LastRequest()
	require.NotNil(t, d)
	assert.Equal(t, transport.MethodGet, d.Method)
	got, err := d.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com/users/42", got)
}

func TestClient_Execute_MalformedSuccessBodyIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42,`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL,
		WithTransport(nethttp.New(nethttp.WithRoundTripper(http.DefaultTransport))),
		WithRetryPolicy(DefaultRetryPolicy().WithInterval(time.Millisecond)),
	)
	require.NoError(t, err)

	resp, err := client.Request().Path("orders").Payload(map[string]any{"sku": "A1"}).Post().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"id": 42,`, resp.Body)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Execute_ResponseInterception(t *testing.T) {
	mt := transport.NewMockTransport().StubResponse(http.StatusOK, `{"return":{"name":"Bruno Mayer"}}`)
	client := newTestClient(t, mt, WithInterceptors(NewInterceptors().OnResponse(UnwrapField("return"))))

	body, err := client.Request().Path("users", "7").Get().Response(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Bruno Mayer"}, body)
}

func TestClient_Execute_ResponseInterceptorErrorIsNotRetried(t *testing.T) {
	boom := errors.New("unexpected envelope")
	var errorHookCalls int

	mt := transport.NewMockTransport().StubResponse(http.StatusOK, `{}`)
	client := newTestClient(t, mt,
		WithRetryPolicy(fastRetry(3)),
		WithInterceptors(NewInterceptors().
			OnResponse(func(any, *transport.Result) (any, error) { return nil, boom }).
			OnError(func(err error) (any, error) {
				errorHookCalls++
				return "recovered", nil
			}),
		),
	)

	_, err := client.Request().Get().Response(context.Background())

	var ie *InterceptorError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, StageResponse, ie.Stage)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, mt.RequestCount())
	assert.Zero(t, errorHookCalls)
}

func TestClient_Execute_ErrorInterception(t *testing.T) {
	replacement := errors.New("profile service down")

	tests := []struct {
		name          string
		hook          ErrorInterceptor
		wantBody      any
		wantErr       error
		wantRecovered bool
	}{
		{
			name: "given hook returning value, then call resolves with it",
			hook: func(error) (any, error) {
				return map[string]any{"message": "let it pass"}, nil
			},
			wantBody:      map[string]any{"message": "let it pass"},
			wantRecovered: true,
		},
		{
			name:    "given hook raising new error, then call fails with it",
			hook:    func(error) (any, error) { return nil, replacement },
			wantErr: replacement,
		},
		{
			name:    "given hook returning nothing, then original failure",
			hook:    func(error) (any, error) { return nil, nil },
			wantErr: transport.ErrStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hookCalls int
			hook := func(err error) (any, error) {
				hookCalls++
				return tt.hook(err)
			}

			mt := transport.NewMockTransport().StubResponse(http.StatusInternalServerError, `{"error":"boom"}`)
			client := newTestClient(t, mt,
				WithRetryPolicy(fastRetry(3)),
				WithInterceptors(NewInterceptors().OnError(hook)),
			)

			resp, err := client.Request().Path("profile").Get().Execute(context.Background())
			assert.Equal(t, 1, hookCalls, "error hook runs once, after retries")
			assert.Equal(t, 3, mt.RequestCount())

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, resp.Body)
			assert.True(t, resp.Recovered)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, 3, resp.Attempts)
		})
	}
}

func TestClient_Execute_ErrorHookSeesTransportError(t *testing.T) {
	var seen *transport.Error
	mt := transport.NewMockTransport().StubResponse(http.StatusNotFound, `{"error":"no such user"}`)
	client := newTestClient(t, mt, WithInterceptors(NewInterceptors().OnError(func(err error) (any, error) {
		seen = transport.AsError(err)
		return nil, nil
	})))

	_, err := client.Request().Path("users", "404").Get().Response(context.Background())
	require.Error(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, http.StatusNotFound, seen.StatusCode)
	assert.Equal(t, map[string]any{"error": "no such user"}, seen.Body)
}

func TestClient_Execute_RequestInterceptorRunsOnce(t *testing.T) {
	var calls int
	mt := transport.NewMockTransport().StubResponse(http.StatusServiceUnavailable, "")
	client := newTestClient(t, mt,
		WithRetryPolicy(fastRetry(4)),
		WithInterceptors(NewInterceptors().OnRequest(func(rb *RequestBuilder) error {
			calls++
			rb.Header("X-Attempt-Token", "once")
			return nil
		})),
	)

	_, err := client.Request().Get().Response(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 4, mt.RequestCount())
	for _, d := range mt.Requests() {
		assert.Equal(t, "once", d.Header.Get("X-Attempt-Token"))
	}
}

func TestClient_Execute_BackoffTiming(t *testing.T) {
	const interval = 5 * time.Millisecond

	run := func(exponential bool) time.Duration {
		mt := transport.NewMockTransport().StubResponse(http.StatusServiceUnavailable, "")
		client := newTestClient(t, mt, WithRetryPolicy(RetryPolicy{
			MaxAttempts: 3,
			Interval:    interval,
			Exponential: exponential,
		}))

		start := time.Now()
		_, err := client.Request().Get().Response(context.Background())
		require.Error(t, err)
		return time.Since(start)
	}

	constant := run(false)
	exponential := run(true)

	assert.GreaterOrEqual(t, constant, 2*interval, "two constant waits")
	assert.GreaterOrEqual(t, exponential, 2*interval+4*interval, "waits of 2x and 4x the interval")
}

func TestClient_Execute_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mt := transport.NewMockTransport().
		OnRequest(func(*transport.Descriptor) { cancel() }).
		StubResponse(http.StatusServiceUnavailable, "")

	var hookErr error
	client := newTestClient(t, mt,
		WithRetryPolicy(RetryPolicy{MaxAttempts: 5, Interval: time.Hour}),
		WithInterceptors(NewInterceptors().OnError(func(err error) (any, error) {
			hookErr = err
			return nil, nil
		})),
	)

	start := time.Now()
	_, err := client.Request().Get().Response(ctx)

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, transport.ErrStatus, "last failure is kept")
	assert.Equal(t, http.StatusServiceUnavailable, transport.AsError(err).StatusCode)
	assert.Equal(t, 1, mt.RequestCount())
	assert.Same(t, hookErr, err)
}

func TestClient_Execute_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mt := transport.NewMockTransport().StubResponse(http.StatusOK, `{}`)
	client := newTestClient(t, mt, WithRetryPolicy(fastRetry(3)))

	_, err := client.Request().Get().Response(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mt.RequestCount())
}

func TestClient_Execute_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tests := []struct {
		name        string
		stub        func(*transport.MockTransport)
		hooks       *Interceptors
		wantErr     bool
		wantRetries int
		wantOutcome string
		wantStatus  codes.Code
	}{
		{
			name: "given success after retries, then retry events recorded",
			stub: func(mt *transport.MockTransport) {
				var n int
				mt.StubFunc(func(*transport.Descriptor) bool {
					n++
					return n < 3
				}, http.StatusBadGateway, "")
				mt.StubResponse(http.StatusOK, `{"ok":true}`)
			},
			wantRetries: 2,
			wantOutcome: outcomeSuccess,
			wantStatus:  codes.Unset,
		},
		{
			name: "given exhausted retries, then span marked as error",
			stub: func(mt *transport.MockTransport) {
				mt.StubResponse(http.StatusBadGateway, "")
			},
			wantErr:     true,
			wantRetries: 2,
			wantOutcome: outcomeFailed,
			wantStatus:  codes.Error,
		},
		{
			name: "given recovered failure, then recovered outcome",
			stub: func(mt *transport.MockTransport) {
				mt.StubResponse(http.StatusBadGateway, "")
			},
			hooks:       NewInterceptors().OnError(Fallback("cached")),
			wantRetries: 2,
			wantOutcome: outcomeRecovered,
			wantStatus:  codes.Unset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			mt := transport.NewMockTransport()
			tt.stub(mt)
			client := newTestClient(t, mt,
				WithTracerProvider(tp),
				WithServiceName("users-api"),
				WithRetryPolicy(fastRetry(3)),
				WithInterceptors(tt.hooks),
			)

			_, err := client.Request().Path("users").Post().Response(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			span := spans[0]
			assert.Equal(t, "httpclient POST", span.Name)
			assert.Equal(t, tt.wantStatus, span.Status.Code)

			attrs := attrMap(span.Attributes)
			assert.Equal(t, attribute.StringValue("users-api"), attrs["http.client.name"])
			assert.Equal(t, attribute.StringValue("mock"), attrs["http.client.transport"])
			assert.Equal(t, attribute.Int64Value(3), attrs["http.attempts"])
			assert.Equal(t, attribute.StringValue(tt.wantOutcome), attrs["http.call.outcome"])

			var retries []sdktrace.Event
			for _, ev := range span.Events {
				if ev.Name == "http.retry" {
					retries = append(retries, ev)
				}
			}
			require.Len(t, retries, tt.wantRetries)
			first := attrMap(retries[0].Attributes)
			assert.Equal(t, attribute.Int64Value(1), first["retry.attempt"])
			assert.Equal(t, attribute.StringValue("status_502"), first["retry.reason"])
		})
	}
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestFinalError(t *testing.T) {
	last := transport.StatusError(http.StatusBadGateway, nil, nil)

	tests := []struct {
		name       string
		err        error
		last       *transport.Error
		wantStatus int
		wantIs     []error
	}{
		{
			name:       "given transport error, then returned as is",
			err:        last,
			last:       last,
			wantStatus: http.StatusBadGateway,
			wantIs:     []error{transport.ErrStatus},
		},
		{
			name:       "given context cause after failure, then both kept",
			err:        context.DeadlineExceeded,
			last:       last,
			wantStatus: http.StatusBadGateway,
			wantIs:     []error{context.DeadlineExceeded, transport.ErrStatus},
		},
		{
			name:       "given context cause before any failure, then status 0",
			err:        context.Canceled,
			wantStatus: 0,
			wantIs:     []error{context.Canceled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := finalError(tt.err, tt.last)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			for _, target := range tt.wantIs {
				assert.ErrorIs(t, got, target)
			}
		})
	}
}
