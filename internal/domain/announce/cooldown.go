package announce

import (
	"sync"
	"time"
)

// Cooldown tracks the last accepted announcement per error category and
// atomically checks-and-records admission, so two racing enqueues for the
// same category cannot both pass.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

// NewCooldown creates a tracker with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Allow reports whether category may be announced at now, recording the
// acceptance if so. A category is suppressed while now is within the window
// of its last acceptance.
func (c *Cooldown) Allow(category string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[category]; ok && now.Sub(last) <= c.window {
		return false
	}
	c.last[category] = now
	return true
}

// Reset forgets all recorded acceptances.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[string]time.Time)
}
