package httpclient

import "net/http"

// Ready-made predicates for RetryPolicy.When.
//
//	policy := httpclient.DefaultRetryPolicy().When(httpclient.RetryTransient)

// RetryTransient retries failures that usually clear up on their own:
// no response at all (status 0), 408, 429, 502, 503 and 504.
func RetryTransient(statusCode int) bool {
	switch statusCode {
	case 0,
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// RetryServerErrors retries network failures and every 5xx status.
func RetryServerErrors(statusCode int) bool {
	return statusCode == 0 || statusCode >= http.StatusInternalServerError
}

// RetryNetworkErrors retries only failures where no response arrived.
func RetryNetworkErrors(statusCode int) bool {
	return statusCode == 0
}

// RetryAll retries every failure.
func RetryAll(int) bool {
	return true
}

// RetryNever retries nothing.
func RetryNever(int) bool {
	return false
}
