// Package testutil provides helpers shared across package tests.
package testutil

import (
	"sync"
	"time"
)

// FixedClock implements registry.Clock with a controllable time.
// Each call to Now returns the current time; Advance moves it forward.
// Deterministic timestamps give deterministic signatures, which golden
// tests rely on.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned to the given time (converted to
// UTC and truncated to whole seconds, matching the persisted
// representation).
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t.UTC().Truncate(time.Second)}
}

// Now returns the current fixed time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d).Truncate(time.Second)
}
