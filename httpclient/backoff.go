package httpclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

var _ backoff.BackOff = (*policyBackOff)(nil)

// policyBackOff feeds RetryPolicy delays to backoff.Retry. Each
// NextBackOff call corresponds to one failed attempt, starting at 1.
//
// Not safe for concurrent use; every call builds its own.
type policyBackOff struct {
	policy  RetryPolicy
	attempt int
}

func newPolicyBackOff(p RetryPolicy) *policyBackOff {
	return &policyBackOff{policy: p}
}

// Reset restarts the attempt count.
func (b *policyBackOff) Reset() {
	b.attempt = 0
}

// NextBackOff returns the wait after the attempt that just failed.
func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.policy.Delay(b.attempt)
}
