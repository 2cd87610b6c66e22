package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ehr/maternity/internal/platform/apiclient"
)

// HTTPBackend talks to the login and refresh endpoints. It uses its own resty
// client so that refreshing never goes through the authenticated client.
type HTTPBackend struct {
	http        *resty.Client
	loginPath   string
	refreshPath string
}

// NewHTTPBackend creates an HTTPBackend rooted at baseURL.
func NewHTTPBackend(baseURL, loginPath, refreshPath string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPBackend{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json"),
		loginPath:   loginPath,
		refreshPath: refreshPath,
	}
}

// Login posts {username, password}.
func (b *HTTPBackend) Login(ctx context.Context, username, password string) (Tokens, error) {
	return b.post(ctx, b.loginPath, map[string]string{"username": username, "password": password})
}

// Refresh posts {refresh_token}.
func (b *HTTPBackend) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return b.post(ctx, b.refreshPath, map[string]string{"refresh_token": refreshToken})
}

func (b *HTTPBackend) post(ctx context.Context, path string, body any) (Tokens, error) {
	resp, err := b.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return Tokens{}, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.IsError() {
		return Tokens{}, apiclient.NewStatusError(resp.StatusCode(), resp.Body())
	}
	t, _, err := apiclient.DecodeOne[Tokens](resp.Body())
	if err != nil {
		return Tokens{}, err
	}
	if t.Access == "" {
		return Tokens{}, fmt.Errorf("post %s: %w", path, apiclient.ErrInvalidResponse)
	}
	return t, nil
}
