// Package httpclient builds and executes outbound HTTP requests through a
// pluggable transport, with request/response/error interception and
// retry-with-backoff.
//
// # Features
//
//   - Fluent request builder: path segments, query, headers, payload, auth
//   - Interchangeable transports (net/http, fasthttp, or any transport.Transport)
//   - Request, response and error interceptors
//   - Retries with constant or exponential waits, filtered by status code
//   - OpenTelemetry spans and metrics, zerolog logging
//
// # Quick Start
//
//	client, err := httpclient.New("https://api.example.com",
//	    httpclient.WithServiceName("user-service"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	// GET https://api.example.com/users/42
//	body, err := client.Request().Path("users", "42").Get().Response(ctx)
//
//	// POST with a JSON payload, decoded into a struct
//	user, err := httpclient.ResponseAs[User](ctx, client.Request().
//	    Path("users").
//	    Payload(newUser).
//	    BearerAuthorization(token).
//	    Post())
//
// # Transports
//
// The net/http adapter is the default. Select another with WithTransport:
//
//	client, err := httpclient.New(baseURL,
//	    httpclient.WithTransport(fasthttp.New(fasthttp.WithTimeout(5*time.Second))),
//	)
//
// Tests can use transport.NewMockTransport or the mocks package.
//
// # Retries
//
// Nothing is retried unless a policy is set on the client or the request.
// Waits are Interval, or Interval*2^n after the n-th failure when Exponential
// is set:
//
//	client, err := httpclient.New(baseURL,
//	    httpclient.WithRetryPolicy(httpclient.DefaultRetryPolicy().
//	        WithInterval(200*time.Millisecond).
//	        ForStatusCodes(502, 503, 504)),
//	)
//
//	// Per request
//	client.Request().Path("reports").Retry(5, time.Second).Get()
//	client.Request().Path("payments").NoRetry().Post()
//
// A failure with status 0 (no response received) never matches a
// StatusCodes list; use When(httpclient.RetryTransient) to include it.
//
// # Interceptors
//
//	hooks := httpclient.NewInterceptors().
//	    OnRequest(httpclient.RequestIDInterceptor()).
//	    OnResponse(httpclient.UnwrapField("data")).
//	    OnError(httpclient.FallbackOnStatus([]any{}, http.StatusNotFound))
//
//	client, err := httpclient.New(baseURL, httpclient.WithInterceptors(hooks))
//
// The request hook runs once per call, before the first attempt. The error
// hook runs once, after retries are exhausted.
//
// # Observability
//
// Every call emits one "httpclient <METHOD>" span with an http.retry event
// per scheduled retry. Metrics:
//   - http.client.call.duration (histogram)
//   - http.client.call.attempts (histogram)
//   - http.client.active_calls (up-down counter)
//   - http.client.retry.attempts (counter)
//   - http.client.retry.exhausted (counter)
//   - http.client.interceptor.recovered (counter)
//
// The net/http transport adds a span per attempt with DNS, connect and TLS
// timings.
package httpclient
