package utils

import (
	"sync"
	"time"
)

// Cooldown rejects a key that was taken less than the window ago. Handlers use
// it so a double-submitted moderation command acts on its target only once.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	taken  map[string]time.Time
	now    func() time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, taken: make(map[string]time.Time), now: time.Now}
}

// TryAcquire sets the lock for key and reports whether it was free.
func (c *Cooldown) TryAcquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.taken[key]; ok && now.Sub(last) < c.window {
		return false // Locked
	}
	for k, t := range c.taken {
		if now.Sub(t) >= c.window {
			delete(c.taken, k)
		}
	}
	c.taken[key] = now
	return true
}

// Release clears key early, for example after the action failed.
func (c *Cooldown) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.taken, key)
}
