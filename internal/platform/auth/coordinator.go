package auth

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ehr/maternity/internal/platform/notification"
)

// Backend exchanges credentials for tokens.
type Backend interface {
	Login(ctx context.Context, username, password string) (Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// Coordinator implements apiclient.Authenticator.
type Coordinator struct {
	tokens   TokenStore
	backend  Backend
	notifier notification.Notifier
	logger   zerolog.Logger
	group    singleflight.Group
	skew     time.Duration
	now      func() time.Time

	refreshes atomic.Int64
}

// NewCoordinator creates a Coordinator. With skew > 0, Token refreshes an
// access token that expires within skew before handing it out.
func NewCoordinator(backend Backend, skew time.Duration, notifier notification.Notifier, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		backend:  backend,
		notifier: notifier,
		logger:   logger.With().Str("component", "auth").Logger(),
		skew:     skew,
		now:      time.Now,
	}
}

// Login authenticates and stores the issued tokens.
func (c *Coordinator) Login(ctx context.Context, username, password string) error {
	t, err := c.backend.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.tokens.Set(t)
	c.logger.Info().Str("username", username).Msg("signed in")
	return nil
}

// SetTokens installs tokens obtained elsewhere.
func (c *Coordinator) SetTokens(t Tokens) { c.tokens.Set(t) }

// Tokens returns the current credential pair.
func (c *Coordinator) Tokens() Tokens { return c.tokens.Get() }

// Logout drops the stored tokens.
func (c *Coordinator) Logout() { c.tokens.Clear() }

// Refreshes returns how many refresh calls reached the backend.
func (c *Coordinator) Refreshes() int64 { return c.refreshes.Load() }

// Token returns the access token to send, or "" when signed out.
func (c *Coordinator) Token(ctx context.Context) (string, error) {
	t := c.tokens.Get()
	if t.Access == "" {
		return "", nil
	}
	if c.skew > 0 && t.Refresh != "" && ExpiresSoon(t.Access, c.skew, c.now()) {
		fresh, err := c.Refresh(ctx, t.Access)
		if err != nil {
			// Let the backend answer 401 for the stale token.
			return t.Access, nil
		}
		return fresh, nil
	}
	return t.Access, nil
}

// Refresh returns a token newer than stale. Callers presenting the same stale
// token share one backend refresh; a caller whose stale token was already
// replaced gets the current token without a new refresh. A failed refresh
// clears the session.
func (c *Coordinator) Refresh(ctx context.Context, stale string) (string, error) {
	if cur := c.tokens.Get().Access; cur != "" && cur != stale {
		return cur, nil
	}

	v, err, shared := c.group.Do("refresh", func() (any, error) {
		t := c.tokens.Get()
		if t.Access != "" && t.Access != stale {
			return t.Access, nil
		}
		if t.Refresh == "" {
			return "", ErrNoRefreshToken
		}

		// Shared by every waiting caller: detach from the first caller's cancellation.
		fresh, err := c.backend.Refresh(context.WithoutCancel(ctx), t.Refresh)
		c.refreshes.Add(1)
		if err != nil {
			c.tokens.Clear()
			c.logger.Warn().Err(err).Msg("token refresh rejected, session cleared")
			notification.Warning(c.notifier, "auth", "Your session has expired. Please sign in again.")
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		c.tokens.Set(fresh)
		c.logger.Debug().Msg("access token refreshed")
		return fresh.Access, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug().Msg("joined in-flight token refresh")
	}
	return v.(string), nil
}
