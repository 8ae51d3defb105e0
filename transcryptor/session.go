package transcryptor

import (
	"sync"
	"time"
)

// SessionRelay holds the session state the Transcryptor keeps for
// chained Yivi sessions. T sits in the restart path between the authentication server and
// the Yivi server for a chained disclosure (card issuance immediately
// following a login session), and can be asked to hold the handoff token
// alive across an AS restart so the chain doesn't have to restart from
// the first QR scan. T never interprets the token; it only stores and
// returns it by session id, TTL-swept like authserver's
// ChainedSessionController.
//
// This is a narrow piece of state, not a general cache: production
// deployments without the chained-card-issuance flow enabled can leave
// Sessions nil, in which case Put/Get are no-ops that report "not held".
type SessionRelay struct {
	mu      sync.Mutex
	entries map[string]relayEntry
}

type relayEntry struct {
	token     []byte
	expiresAt time.Time
}

// NewSessionRelay creates an empty relay.
func NewSessionRelay() *SessionRelay {
	return &SessionRelay{entries: make(map[string]relayEntry)}
}

// Put stores token under sessionID until ttl elapses.
func (r *SessionRelay) Put(sessionID string, token []byte, ttl time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]byte(nil), token...)
	r.entries[sessionID] = relayEntry{token: cp, expiresAt: time.Now().Add(ttl)}
}

// Get returns the token held for sessionID, if any and not expired.
func (r *SessionRelay) Get(sessionID string) ([]byte, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.token, true
}

// Sweep removes expired entries; callers run this periodically.
func (r *SessionRelay) Sweep() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, e := range r.entries {
		if now.After(e.expiresAt) {
			delete(r.entries, id)
		}
	}
}
