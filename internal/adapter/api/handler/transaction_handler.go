package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
	"github.com/nyxscore/connectone-sub003/internal/usecase"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
	"github.com/nyxscore/connectone-sub003/pkg/response"
	"github.com/nyxscore/connectone-sub003/pkg/utils"
)

type TransactionHandler struct {
	transactionUseCase *usecase.TransactionUseCase
}

func NewTransactionHandler(transactionUseCase *usecase.TransactionUseCase) *TransactionHandler {
	return &TransactionHandler{
		transactionUseCase: transactionUseCase,
	}
}

type createTransactionRequest struct {
	ProductID     string  `json:"product_id" validate:"required"`
	SellerID      string  `json:"seller_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"payment_method"`
}

type applyTransitionRequest struct {
	To         string          `json:"to" validate:"required"`
	Action     string          `json:"action" validate:"required"`
	Conditions map[string]bool `json:"conditions"`
	Notes      string          `json:"notes"`
}

func actorFromContext(c echo.Context) usecase.Actor {
	uid, _ := c.Get("uid").(string)
	admin, _ := c.Get("admin").(bool)
	return usecase.Actor{UID: uid, Admin: admin}
}

func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req createTransactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	transaction, err := h.transactionUseCase.CreateTransaction(c.Request().Context(), userID, usecase.CreateTransactionInput{
		ProductID:     req.ProductID,
		SellerID:      req.SellerID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, transaction)
}

func (h *TransactionHandler) ApplyTransition(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req applyTransitionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionUseCase.ApplyTransition(c.Request().Context(), actorFromContext(c), transactionID, usecase.ApplyTransitionInput{
		To:         lifecycle.Status(req.To),
		Action:     req.Action,
		Conditions: req.Conditions,
		Notes:      req.Notes,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

// ApplySystemTransition serves trusted collaborator signals (payment
// confirmed, courier scans) that fire system-role edges. The route is
// admin-gated; the acting uid is the system sentinel, not the caller.
func (h *TransactionHandler) ApplySystemTransition(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req applyTransitionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionUseCase.ApplyTransition(c.Request().Context(), usecase.Actor{UID: "system", System: true}, transactionID, usecase.ApplyTransitionInput{
		To:         lifecycle.Status(req.To),
		Action:     req.Action,
		Conditions: req.Conditions,
		Notes:      req.Notes,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	transaction, err := h.transactionUseCase.GetTransaction(c.Request().Context(), actorFromContext(c), transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transaction)
}

func (h *TransactionHandler) GetAllowedActions(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	actions, err := h.transactionUseCase.GetAllowedActions(c.Request().Context(), actorFromContext(c), transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"actions": actions,
	})
}

func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	role := c.QueryParam("role")
	status := c.QueryParam("status")
	pagination := utils.GetPaginationParams(c)

	userID := c.Get("uid").(string)

	transactions, total, err := h.transactionUseCase.ListTransactions(
		c.Request().Context(),
		userID,
		role,
		status,
		pagination.PageSize,
		pagination.Offset,
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, transactions, total, pagination.Page, pagination.PageSize)
}

func (h *TransactionHandler) GetTransitionLogs(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	logs, err := h.transactionUseCase.GetTransitionLog(c.Request().Context(), actorFromContext(c), transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, logs)
}
