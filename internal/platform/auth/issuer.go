package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Claims are the JWT claims issued by the development backend.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Users maps usernames to passwords.
	Users map[string]string
}

// Issuer signs and validates HMAC tokens. Refresh tokens are single use:
// each refresh revokes the presented token and issues a new pair.
type Issuer struct {
	cfg     IssuerConfig
	revoked *RevocationList
	now     func() time.Time
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "maternity-dev"
	}
	return &Issuer{cfg: cfg, revoked: NewRevocationList(), now: time.Now}
}

// Login checks the credentials and issues a token pair.
func (i *Issuer) Login(username, password string) (Tokens, error) {
	want, ok := i.cfg.Users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(password)) != 1 {
		return Tokens{}, ErrInvalidCredentials
	}
	return i.issue(username)
}

// Refresh exchanges a valid refresh token for a new pair.
func (i *Issuer) Refresh(refreshToken string) (Tokens, error) {
	claims, err := i.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return Tokens{}, err
	}
	i.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	return i.issue(claims.Subject)
}

// Revoke invalidates a refresh token. Unknown or malformed tokens are ignored.
func (i *Issuer) Revoke(refreshToken string) {
	if claims, err := i.parse(refreshToken, TokenTypeRefresh); err == nil {
		i.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	}
}

// Validate parses an access token.
func (i *Issuer) Validate(accessToken string) (*Claims, error) {
	return i.parse(accessToken, TokenTypeAccess)
}

func (i *Issuer) issue(subject string) (Tokens, error) {
	access, err := i.sign(subject, TokenTypeAccess, i.cfg.AccessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := i.sign(subject, TokenTypeRefresh, i.cfg.RefreshTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh, ExpiresIn: int(i.cfg.AccessTTL.Seconds())}, nil
}

func (i *Issuer) sign(subject, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return s, nil
}

func (i *Issuer) parse(token, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != typ || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if i.revoked.IsRevoked(claims.ID) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
