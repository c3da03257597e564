package worker

import "time"

// RetryPolicy spaces out repeated delivery attempts for a sync task. Each
// failed attempt multiplies the wait by BackoffFactor until MaxDelay, and
// Exhausted decides when the task moves to the dead letter queue instead.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Exhausted reports whether the given attempt (1-based) used up the budget.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.MaxRetries
}

// NextDelay returns how long to wait before retrying after the given
// attempt (1-based).
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	wait := base
	for i := 1; i < attempt; i++ {
		wait = time.Duration(float64(wait) * factor)
		if r.MaxDelay > 0 && wait >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}
