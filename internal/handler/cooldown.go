package handler

import (
	"sync"
	"time"
)

type cooldownKey struct {
	userID int64
	global bool
	cmd    string
}

// Cooldowns tracks when each command was last used, per user and bot-wide.
// Entries are dropped once they are older than the longest window asked
// about for their command.
type Cooldowns struct {
	mu      sync.Mutex
	last    map[cooldownKey]time.Time
	windows map[string]time.Duration
	now     func() time.Time
}

// NewCooldowns creates an empty tracker.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{
		last:    make(map[cooldownKey]time.Time),
		windows: make(map[string]time.Duration),
		now:     time.Now,
	}
}

// Remaining returns how long userID must still wait before using cmd.
// Zero means the command is available.
func (c *Cooldowns) Remaining(userID int64, cmd string, user, global time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.windows[cmd] = max(c.windows[cmd], user, global)

	now := c.now()
	var wait time.Duration
	if t, ok := c.last[cooldownKey{userID: userID, cmd: cmd}]; ok && user > 0 {
		wait = max(wait, t.Add(user).Sub(now))
	}
	if t, ok := c.last[cooldownKey{global: true, cmd: cmd}]; ok && global > 0 {
		wait = max(wait, t.Add(global).Sub(now))
	}
	return max(wait, 0)
}

// Mark records a use of cmd by userID and forgets expired uses.
func (c *Cooldowns) Mark(userID int64, cmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, t := range c.last {
		if now.Sub(t) >= c.windows[k.cmd] {
			delete(c.last, k)
		}
	}
	c.last[cooldownKey{userID: userID, cmd: cmd}] = now
	c.last[cooldownKey{global: true, cmd: cmd}] = now
}

