package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	SetupTransactionRouter(e, authMiddleware, adminMiddleware)
	SetupChatRouter(e, authMiddleware)
	SetupBlockRouter(e, authMiddleware)
	SetupWebSocketRouter(e, authMiddleware)
	SetupHealthRouter(e)
}
