package engine

import "time"

// Clock abstracts the retry backoff wait so tests can observe and
// collapse delays instead of sleeping through them.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
