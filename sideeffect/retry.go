package sideeffect

import "time"

// RetryPolicy describes the side-effect executor's local retry loop
// (spec.md §4.e): {max attempts, initial delay, backoff factor, max delay,
// max elapsed}. Only RetryableFailure is retried; a TerminalFailure always
// short-circuits. This is implemented directly against the spec's exact
// field set rather than via a general-purpose backoff library — see
// DESIGN.md for why no library in the corpus exposes this precise shape.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
	MaxElapsed    time.Duration
}

// DefaultRetryPolicy is a general-purpose policy for callers to pass
// explicitly; a zero RetryPolicy is not replaced by it (zero MaxAttempts
// and MaxElapsed mean no limit).
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:   50,
	InitialDelay:  50 * time.Millisecond,
	BackoffFactor: 2.0,
	MaxDelay:      30 * time.Second,
	MaxElapsed:    10 * time.Minute,
}

// delay returns the sleep duration before the given attempt (1-indexed:
// attempt 1 is the delay before the second try).
func (p RetryPolicy) delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	var factor = p.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	var d = float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= factor
		if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}
	var result = time.Duration(d)
	if p.MaxDelay > 0 && result > p.MaxDelay {
		result = p.MaxDelay
	}
	return result
}

// exhausted reports whether no further attempt should be made, given the
// number of attempts already made and the elapsed time since the first.
func (p RetryPolicy) exhausted(attemptsMade int, elapsed time.Duration) bool {
	if p.MaxAttempts > 0 && attemptsMade >= p.MaxAttempts {
		return true
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return true
	}
	return false
}
