// Package retry runs fallible calls under a bounded exponential-backoff schedule.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// Classification tells the policy whether an error is worth another attempt.
type Classification int

const (
	Terminal Classification = iota
	Retryable
)

func (c Classification) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "terminal"
}

// Classifier maps an error to a Classification.
type Classifier func(error) Classification

// Attempt records one failed try and the delay that followed it.
type Attempt struct {
	Number int
	Delay  time.Duration
	Cause  error
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted %d attempts: %v", len(e.Attempts), e.Last())
}

// Last returns the cause of the final attempt.
func (e *ExhaustedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Cause
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last()
}

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Policy is the retry schedule. The zero value uses the defaults.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep suspends the caller; nil uses a timer bound to ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns the 3-attempt, 100ms-base policy.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay is the wait before the given retry (1 = first retry).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return p.baseDelay() << (retry - 1)
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return DefaultBaseDelay
	}
	return p.BaseDelay
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op until it succeeds, fails terminally, or the attempts run out.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), classify Classifier) (T, error) {
	var zero T
	max := p.maxAttempts()
	attempts := make([]Attempt, 0, max)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		if classify == nil || classify(err) != Retryable {
			return zero, err
		}
		if n >= max {
			attempts = append(attempts, Attempt{Number: n, Cause: err})
			return zero, &ExhaustedError{Attempts: attempts}
		}
		delay := p.Delay(n)
		attempts = append(attempts, Attempt{Number: n, Delay: delay, Cause: err})
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}
}
