package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/adapter/api/handler"
)

// SetupDevRouter mounts the dev token endpoint. Only called when
// ENVIRONMENT=development.
func SetupDevRouter(e *echo.Echo) {
	devTokenHandler := handler.GetDevTokenHandler()
	e.POST("/v1/dev/token", devTokenHandler.GenerateToken)
}
