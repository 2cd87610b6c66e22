package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	Tokens
	TokenType string `json:"token_type"`
}

// RegisterRoutes registers POST /auth/login, /auth/refresh and /auth/logout.
func RegisterRoutes(g *echo.Group, issuer *Issuer) {
	a := g.Group("/auth")
	a.POST("/login", handleLogin(issuer))
	a.POST("/refresh", handleRefresh(issuer))
	a.POST("/logout", handleLogout(issuer))
}

func handleLogin(issuer *Issuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.Username == "" || req.Password == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
		}
		t, err := issuer.Login(req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, tokenResponse{Tokens: t, TokenType: "Bearer"})
	}
}

func handleRefresh(issuer *Issuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req refreshRequest
		if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
		}
		t, err := issuer.Refresh(req.RefreshToken)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token rejected")
		}
		return c.JSON(http.StatusOK, tokenResponse{Tokens: t, TokenType: "Bearer"})
	}
}

func handleLogout(issuer *Issuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req refreshRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		issuer.Revoke(req.RefreshToken)
		return c.NoContent(http.StatusNoContent)
	}
}
