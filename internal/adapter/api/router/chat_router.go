package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/adapter/api/handler"
	"github.com/nyxscore/connectone-sub003/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()

	chats := e.Group("/v1/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.POST("", chatHandler.CreateThread)
	chats.GET("", chatHandler.ListThreads)
	chats.DELETE("/:id", chatHandler.DeleteThread)
	chats.POST("/:id/messages", chatHandler.SendMessage)
	chats.GET("/:id/messages", chatHandler.ListMessages)
	chats.POST("/:id/read", chatHandler.MarkRead)
	chats.POST("/:id/messages/:messageId/read", chatHandler.MarkMessageRead)
}
