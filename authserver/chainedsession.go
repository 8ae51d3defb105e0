package authserver

import (
	"sync"
	"time"
)

// ChainedSessionController tracks pending Yivi chained-session
// handoffs: a registration session whose disclosure result the Yivi server
// will post to AS's next_session callback, to be picked up by
// YiviReleaseNextSessionEP rather than returned directly, letting a card
// issuance session follow a login without a second QR scan.
type ChainedSessionController struct {
	mu      sync.Mutex
	entries map[string]*chainedEntry
}

type chainedEntry struct {
	expiresAt time.Time
	disclosed bool
	result    []byte
}

// NewChainedSessionController creates an empty controller.
func NewChainedSessionController() *ChainedSessionController {
	return &ChainedSessionController{entries: make(map[string]*chainedEntry)}
}

// Register starts tracking a new chained session id, valid until ttl
// elapses.
func (c *ChainedSessionController) Register(sessionID string, ttl time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = &chainedEntry{expiresAt: time.Now().Add(ttl)}
}

// MarkDisclosed records that the Yivi server posted a disclosure result
// for sessionID, making it available to Release.
func (c *ChainedSessionController) MarkDisclosed(sessionID string, result []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[sessionID]
	if !ok || time.Now().After(e.expiresAt) {
		return
	}
	e.disclosed = true
	e.result = result
}

// Release implements YiviReleaseNextSessionEP: returns the disclosure
// result posted for sessionID, removing it from the controller so it can
// only be released once. ok is false if no result has arrived yet, the
// session is unknown, or it expired.
func (c *ChainedSessionController) Release(sessionID string) (result []byte, ok bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, present := c.entries[sessionID]
	if !present || time.Now().After(e.expiresAt) || !e.disclosed {
		return nil, false
	}
	delete(c.entries, sessionID)
	return e.result, true
}

// Sweep removes expired, unreleased entries; callers run this periodically.
func (c *ChainedSessionController) Sweep() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}
