package httpclient

import (
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.Interval)
	assert.True(t, p.Exponential)
	assert.Empty(t, p.StatusCodes)
	assert.Nil(t, p.Predicate)
	assert.NoError(t, p.Validate())
}

func TestRetryPolicy_Delay(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{
			name:    "given constant policy, then every wait equals interval",
			policy:  RetryPolicy{MaxAttempts: 5, Interval: 100 * time.Millisecond},
			attempt: 4,
			want:    100 * time.Millisecond,
		},
		{
			name:    "given exponential policy, then first wait doubles interval",
			policy:  RetryPolicy{MaxAttempts: 5, Interval: 100 * time.Millisecond, Exponential: true},
			attempt: 1,
			want:    200 * time.Millisecond,
		},
		{
			name:    "given exponential policy, then third wait is interval times 8",
			policy:  RetryPolicy{MaxAttempts: 5, Interval: 100 * time.Millisecond, Exponential: true},
			attempt: 3,
			want:    800 * time.Millisecond,
		},
		{
			name: "given max interval, then wait is capped",
			policy: RetryPolicy{
				MaxAttempts: 5,
				Interval:    100 * time.Millisecond,
				Exponential: true,
				MaxInterval: 300 * time.Millisecond,
			},
			attempt: 3,
			want:    300 * time.Millisecond,
		},
		{
			name:    "given zero interval, then no wait",
			policy:  RetryPolicy{MaxAttempts: 5, Exponential: true},
			attempt: 3,
			want:    0,
		},
		{
			name:    "given huge exponent, then wait saturates instead of overflowing",
			policy:  RetryPolicy{MaxAttempts: 100, Interval: time.Second, Exponential: true},
			attempt: 80,
			want:    time.Duration(math.MaxInt64),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.policy.Delay(tt.attempt))
		})
	}
}

func TestRetryPolicy_Delay_ExponentialNeverShorterThanConstant(t *testing.T) {
	constant := RetryPolicy{MaxAttempts: 10, Interval: 50 * time.Millisecond}
	exponential := constant.WithExponential(true)

	for attempt := 1; attempt < 10; attempt++ {
		assert.GreaterOrEqual(t, exponential.Delay(attempt), constant.Delay(attempt), "attempt %d", attempt)
	}
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		status int
		want   bool
	}{
		{
			name:   "given no restriction, then 401 is eligible",
			policy: DefaultRetryPolicy(),
			status: http.StatusUnauthorized,
			want:   true,
		},
		{
			name:   "given no restriction, then network failure is eligible",
			policy: DefaultRetryPolicy(),
			status: 0,
			want:   true,
		},
		{
			name:   "given status codes {500}, then 401 is not eligible",
			policy: DefaultRetryPolicy().ForStatusCodes(http.StatusInternalServerError),
			status: http.StatusUnauthorized,
			want:   false,
		},
		{
			name:   "given status codes {500}, then 500 is eligible",
			policy: DefaultRetryPolicy().ForStatusCodes(http.StatusInternalServerError),
			status: http.StatusInternalServerError,
			want:   true,
		},
		{
			name:   "given status codes, then network failure is not eligible",
			policy: DefaultRetryPolicy().ForStatusCodes(http.StatusBadGateway),
			status: 0,
			want:   false,
		},
		{
			name:   "given predicate, then predicate decides",
			policy: DefaultRetryPolicy().When(func(s int) bool { return s == http.StatusConflict }),
			status: http.StatusConflict,
			want:   true,
		},
		{
			name:   "given predicate rejecting, then not eligible",
			policy: DefaultRetryPolicy().When(RetryNever),
			status: http.StatusServiceUnavailable,
			want:   false,
		},
		{
			name: "given status codes and predicate, then status codes take precedence",
			policy: DefaultRetryPolicy().
				ForStatusCodes(http.StatusServiceUnavailable).
				When(RetryAll),
			status: http.StatusInternalServerError,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.policy.ShouldRetry(tt.status))
		})
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given default policy, then valid",
			policy:  DefaultRetryPolicy(),
			wantErr: assert.NoError,
		},
		{
			name:    "given no retry policy, then valid",
			policy:  NoRetryPolicy(),
			wantErr: assert.NoError,
		},
		{
			name:   "given zero attempts, then invalid",
			policy: RetryPolicy{},
			wantErr: func(t assert.TestingT, err error, _ ...any) bool {
				return assert.ErrorIs(t, err, ErrInvalidRetryPolicy)
			},
		},
		{
			name:   "given negative interval, then invalid",
			policy: RetryPolicy{MaxAttempts: 2, Interval: -time.Second},
			wantErr: func(t assert.TestingT, err error, _ ...any) bool {
				return assert.ErrorIs(t, err, ErrInvalidRetryPolicy)
			},
		},
		{
			name:   "given negative max interval, then invalid",
			policy: RetryPolicy{MaxAttempts: 2, MaxInterval: -time.Second},
			wantErr: func(t assert.TestingT, err error, _ ...any) bool {
				return assert.ErrorIs(t, err, ErrInvalidRetryPolicy)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.wantErr(t, tt.policy.Validate())
		})
	}
}

func TestRetryPolicy_CopySemantics(t *testing.T) {
	codes := []int{500, 502}
	base := DefaultRetryPolicy()
	derived := base.WithMaxAttempts(7).ForStatusCodes(codes...)

	codes[0] = 404

	assert.Equal(t, DefaultMaxAttempts, base.MaxAttempts, "base policy must not change")
	assert.Empty(t, base.StatusCodes)
	assert.Equal(t, 7, derived.MaxAttempts)
	assert.Equal(t, []int{500, 502}, derived.StatusCodes, "codes must be copied")
}
