package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/adapter/api/handler"
	"github.com/nyxscore/connectone-sub003/internal/adapter/api/middleware"
)

func SetupBlockRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	blockHandler := handler.GetBlockHandler()

	blocks := e.Group("/v1/blocks")
	blocks.Use(authMiddleware.Authenticate)

	blocks.POST("", blockHandler.Block)
	blocks.GET("", blockHandler.ListBlocks)
	blocks.DELETE("/:uid", blockHandler.Unblock)
}
