package backoff_test

import (
	"testing"
	"time"

	"github.com/seanchatmangpt/reactor/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestLinear_GrowsLinearly(t *testing.T) {
	l := backoff.NewLinear(time.Second, time.Minute)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{5, 5 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := l.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestLinear_CapsAtMax(t *testing.T) {
	l := backoff.NewLinear(time.Second, 5*time.Second)

	if got := l.Delay(10); got != 5*time.Second {
		t.Errorf("Delay(10) = %v, want %v (capped at Max)", got, 5*time.Second)
	}
}

func TestExponential_DoublesEachAttempt(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},  // 1 * 2^0
		{2, 2 * time.Second},  // 1 * 2^1
		{3, 4 * time.Second},  // 1 * 2^2
		{4, 8 * time.Second},  // 1 * 2^3
		{5, 16 * time.Second}, // 1 * 2^4
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CustomMultiplier(t *testing.T) {
	e := &backoff.Exponential{Initial: time.Second, Max: time.Hour, Multiplier: 3}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 3 * time.Second},
		{3, 9 * time.Second},
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	// Attempt 5 = 16s > 10s max → should return 10s.
	if got := e.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
}

func TestExponentialWithJitter_NeverBelowFloor(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, time.Hour)
	floor := backoff.NewExponential(time.Second, time.Hour)

	for attempt := 1; attempt <= 5; attempt++ {
		want := floor.Delay(attempt)
		// Jitter is bounded by the default 25% fraction.
		ceiling := want + time.Duration(float64(want)*0.25)

		for range 100 {
			got := e.Delay(attempt)
			if got < want {
				t.Errorf("Delay(%d) = %v, should be >= floor %v", attempt, got, want)
			}
			if got > ceiling {
				t.Errorf("Delay(%d) = %v, should be <= %v", attempt, got, ceiling)
			}
		}
	}
}

func TestExponentialWithJitter_ProducesVariance(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, time.Minute)

	seen := make(map[time.Duration]bool)
	for range 100 {
		d := e.Delay(3)
		seen[d] = true
	}

	// With jitter, we should see many distinct values.
	if len(seen) < 2 {
		t.Errorf("expected variance in jitter, got only %d distinct values", len(seen))
	}
}

func TestExponentialWithJitter_CustomFraction(t *testing.T) {
	e := &backoff.ExponentialWithJitter{
		Initial:        time.Second,
		Multiplier:     2,
		JitterFraction: 0.5,
	}

	for range 100 {
		got := e.Delay(1)
		if got < time.Second {
			t.Fatalf("Delay(1) = %v, should be >= 1s floor", got)
		}
		if got > 1500*time.Millisecond {
			t.Fatalf("Delay(1) = %v, should be <= 1.5s", got)
		}
	}
}

func TestDefaultStrategy_ReturnsPositiveDelay(t *testing.T) {
	s := backoff.DefaultStrategy()
	if s == nil {
		t.Fatal("DefaultStrategy() returned nil")
	}

	d := s.Delay(1)
	if d < time.Second {
		t.Errorf("DefaultStrategy().Delay(1) = %v, should be >= 1s floor", d)
	}
}
