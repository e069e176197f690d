package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/adapter/api/handler"
	"github.com/nyxscore/connectone-sub003/internal/adapter/api/middleware"
)

func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()

	e.GET("/v1/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate)
}
