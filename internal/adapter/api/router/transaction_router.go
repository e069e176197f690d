package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/adapter/api/handler"
	"github.com/nyxscore/connectone-sub003/internal/adapter/api/middleware"
)

func SetupTransactionRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	transactionHandler := handler.GetTransactionHandler()

	transactions := e.Group("/v1/transactions")
	transactions.Use(authMiddleware.Authenticate)

	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.POST("/:id/transition", transactionHandler.ApplyTransition)
	transactions.GET("/:id/actions", transactionHandler.GetAllowedActions)
	transactions.GET("/:id/logs", transactionHandler.GetTransitionLogs)

	// Collaborator signals (payment gateway, courier tracking) enter here
	// and fire system-role edges.
	internal := e.Group("/v1/internal/transactions")
	internal.Use(authMiddleware.Authenticate)
	internal.Use(adminMiddleware.AdminOnly)

	internal.POST("/:id/transition", transactionHandler.ApplySystemTransition)
}
