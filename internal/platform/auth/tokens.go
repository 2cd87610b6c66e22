// Package auth owns the client's credentials. The Coordinator hands out the
// current access token and, when the backend rejects it, runs one refresh on
// behalf of every request that observed the same stale token.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoRefreshToken means the session cannot be renewed without a new login.
	ErrNoRefreshToken = errors.New("auth: no refresh token")
	// ErrSessionExpired is returned after a refresh was rejected.
	ErrSessionExpired = errors.New("auth: session expired")
)

// Tokens is a credential pair issued by the backend.
type Tokens struct {
	Access    string `json:"access_token"`
	Refresh   string `json:"refresh_token"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

// TokenStore holds the current credential pair.
type TokenStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

// Set replaces the stored tokens. An empty refresh token keeps the previous one.
func (s *TokenStore) Set(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Refresh == "" {
		t.Refresh = s.tokens.Refresh
	}
	s.tokens = t
}

// Get returns the stored tokens.
func (s *TokenStore) Get() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// Clear drops both tokens.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
}

// ExpiresSoon reports whether the JWT token expires within skew of now. The
// signature is not checked. Tokens without a readable exp claim never expire
// soon.
func ExpiresSoon(token string, skew time.Duration, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(claims.ExpiresAt.Time)
}
