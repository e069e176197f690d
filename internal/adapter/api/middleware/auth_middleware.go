package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/infrastructure/firebase"
)

// AuthMiddleware verifies Bearer tokens and stashes the caller's uid and
// admin flag in the echo context. With a Firebase auth client it verifies
// ID tokens; without one (local development) it falls back to the HS256
// dev token generator.
type AuthMiddleware struct {
	authClient *auth.Client
	devTokens  *firebase.DevTokenGenerator
}

func NewAuthMiddleware(authClient *auth.Client, devTokens *firebase.DevTokenGenerator) *AuthMiddleware {
	return &AuthMiddleware{
		authClient: authClient,
		devTokens:  devTokens,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		uid, admin, err := m.verify(c, parts[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("uid", uid)
		c.Set("admin", admin)

		return next(c)
	}
}

func (m *AuthMiddleware) verify(c echo.Context, tokenString string) (string, bool, error) {
	if m.authClient != nil {
		token, err := m.authClient.VerifyIDToken(c.Request().Context(), tokenString)
		if err != nil {
			return "", false, err
		}
		admin, _ := token.Claims["admin"].(bool)
		return token.UID, admin, nil
	}
	return m.devTokens.Verify(tokenString)
}
