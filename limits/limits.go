// Package limits bounds how many steps execute simultaneously.
//
// The engine calls Acquire before launching a step and Release when the
// step settles. Fixed is a plain counting semaphore; Adaptive resizes
// its permit pool between a floor and a ceiling by sampling an external
// load signal, with hysteresis so the pool does not oscillate.
package limits

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Controller is the admission gate for step execution.
type Controller interface {
	// Acquire blocks until a permit is available or ctx is done.
	Acquire(ctx context.Context) error
	// Release returns a permit taken by Acquire.
	Release()
}

// Fixed is a Controller with a constant permit pool.
type Fixed struct {
	sem *semaphore.Weighted
	cap int
}

// NewFixed creates a fixed-size controller with n permits.
// Values below 1 are treated as 1.
func NewFixed(n int) *Fixed {
	if n < 1 {
		n = 1
	}
	return &Fixed{sem: semaphore.NewWeighted(int64(n)), cap: n}
}

// Acquire blocks until a permit is available or ctx is done.
func (f *Fixed) Acquire(ctx context.Context) error {
	return f.sem.Acquire(ctx, 1)
}

// Release returns a permit.
func (f *Fixed) Release() {
	f.sem.Release(1)
}

// Cap returns the permit pool size.
func (f *Fixed) Cap() int { return f.cap }
