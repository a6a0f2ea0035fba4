package registry

import (
	"sync"
	"time"
)

// Clock supplies record timestamps. Implementations must return UTC
// times that never decrease across calls.
type Clock interface {
	Now() time.Time
}

// monotonicClock stamps records with wall-clock time but never goes
// backwards, even if the system clock steps back (NTP adjustment).
// Timestamps are truncated to whole seconds to match the persisted
// RFC 3339 representation, so equal Clock output always round-trips to
// an identical signature.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
}

// NewClock returns the default wall-clock based Clock.
func NewClock() Clock {
	return &monotonicClock{}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now
	return now
}
