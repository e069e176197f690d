package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminMiddleware gates routes on the admin claim resolved by Authenticate.
type AdminMiddleware struct{}

func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := c.Get("uid").(string); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		admin, _ := c.Get("admin").(bool)
		if !admin {
			return echo.NewHTTPError(http.StatusForbidden, "Admin privileges required")
		}

		return next(c)
	}
}
