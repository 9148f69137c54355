// Package retry decides how a single refresh cycle reacts to failed attempts.
//
// A Policy is pure decision logic: given the number of attempts made so far
// it answers whether another attempt is allowed and how long to wait first.
// Do runs an operation under a Policy, converting panics into errors so a
// failing operation can never escape the caller's loop.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/dailyyoga/cacheorch/routine"
)

// Policy decides whether a failed attempt is followed by another one
type Policy interface {
	// Next is called after attempt (1-based) failed with err.
	// It returns the delay before the next attempt and whether to retry at all.
	Next(attempt int, err error) (time.Duration, bool)
}

// Fixed allows MaxAttempts tries with a constant Delay between them
type Fixed struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p Fixed) Next(attempt int, _ error) (time.Duration, bool) {
	if attempt >= max(p.MaxAttempts, 1) {
		return 0, false
	}
	return p.Delay, true
}

const maxDuration = time.Duration(math.MaxInt64)

// Exponential multiplies the delay after each failure, capped at MaxDelay
type Exponential struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Multiplier defaults to 2
	Multiplier float64
	// Jitter adds up to 25% random delay
	Jitter bool
}

func (p Exponential) Next(attempt int, _ error) (time.Duration, bool) {
	if attempt >= max(p.MaxAttempts, 1) {
		return 0, false
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	limit := maxDuration
	if p.MaxDelay > 0 {
		limit = p.MaxDelay
	}
	delay := limit
	// compare as float so large exponents saturate instead of wrapping negative
	if f := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1)); f < float64(limit) {
		delay = time.Duration(f)
	}
	if p.Jitter && delay >= 4 {
		// #nosec G404 -- timing variance only
		j := time.Duration(rand.Int64N(int64(delay / 4)))
		if delay > maxDuration-j {
			return maxDuration, true
		}
		delay += j
	}
	return delay, true
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; Do returns it immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// OnRetryFunc is called before sleeping for the next attempt
type OnRetryFunc func(attempt int, err error, delay time.Duration)

// Do runs op until it succeeds, the policy gives up, err is permanent or ctx
// ends. It returns the number of attempts made and the last error.
// A panic inside op is recovered and treated as a failed attempt.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, onRetry OnRetryFunc) (int, error) {
	if p == nil {
		p = Fixed{MaxAttempts: 1}
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := routine.Call(func() error { return op(ctx) })
		if err == nil {
			return attempt, nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return attempt, err
		}

		delay, again := p.Next(attempt, err)
		if !again {
			return attempt, err
		}
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, err
			case <-timer.C:
			}
		}
	}
}
