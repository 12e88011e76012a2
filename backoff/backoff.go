// Package backoff provides pluggable retry delay strategies for step
// execution. All strategies are safe for concurrent use (they are
// stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with the attempt number.
// Delay = min(Initial * attempt, Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	d := l.Initial * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential multiplies the delay each attempt.
// Delay = min(Initial * Multiplier^(attempt-1), Max).
// A Multiplier below 1 is treated as 2.
type Exponential struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// NewExponential creates an exponential backoff strategy with the
// default doubling multiplier.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay, Multiplier: 2}
}

// Delay returns Initial * Multiplier^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	return capDelay(e.base(attempt), e.Max)
}

func (e *Exponential) base(attempt int) time.Duration {
	mult := e.Multiplier
	if mult < 1 {
		mult = 2
	}
	return time.Duration(float64(e.Initial) * math.Pow(mult, float64(attempt-1)))
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (additive jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter adds bounded random jitter on top of an
// exponential base. Delay = floor + U[0, JitterFraction*floor), where
// floor = min(Initial * Multiplier^(attempt-1), Max). The jitter only
// adds, so the delay is never below the deterministic floor. Jitter
// prevents retry storms when many steps fail simultaneously.
type ExponentialWithJitter struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64

	// JitterFraction bounds the additive jitter as a fraction of the
	// floor delay. Zero or negative means the default of 0.25.
	JitterFraction float64
}

// NewExponentialWithJitter creates an exponential backoff with
// additive jitter, doubling each attempt.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay, Multiplier: 2}
}

// Delay returns the jittered delay for the given attempt.
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	exp := Exponential{Initial: e.Initial, Max: e.Max, Multiplier: e.Multiplier}
	floor := exp.Delay(attempt)

	frac := e.JitterFraction
	if frac <= 0 {
		frac = 0.25
	}

	jitter := time.Duration(rand.Float64() * frac * float64(floor)) //nolint:gosec // jitter intentionally uses non-crypto rand
	return floor + jitter
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default backoff used by the engine:
// ExponentialWithJitter with 1s initial and 1m max.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(1*time.Second, 1*time.Minute)
}

func capDelay(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}
