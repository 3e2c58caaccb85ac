package dash

import "sync"

// PollControl pauses periodic queue polling. The poller reads IsPaused on
// every tick; the TUI and the web console write. Event-driven refreshes
// ignore it.
type PollControl struct {
	mu     sync.RWMutex
	paused bool
}

// IsPaused returns whether periodic polling is paused.
func (c *PollControl) IsPaused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Pause stops periodic polling.
func (c *PollControl) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume restarts periodic polling at the next tick.
func (c *PollControl) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Toggle flips the pause state and returns the new value.
func (c *PollControl) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
	return c.paused
}
