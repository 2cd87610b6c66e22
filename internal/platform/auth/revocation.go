package auth

import (
	"sync"
	"time"
)

// RevocationList remembers revoked token IDs until the tokens would have
// expired anyway. Expired entries are pruned on write.
type RevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time // JTI -> expiry
	now     func() time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke adds jti to the list.
func (l *RevocationList) Revoke(jti string, expiresAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, exp := range l.entries {
		if now.After(exp) {
			delete(l.entries, id)
		}
	}
	l.entries[jti] = expiresAt
}

// IsRevoked checks if a token JTI has been revoked.
func (l *RevocationList) IsRevoked(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[jti]
	return ok
}

// Len returns the number of tracked entries.
func (l *RevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
