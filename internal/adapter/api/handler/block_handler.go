package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/usecase"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
	"github.com/nyxscore/connectone-sub003/pkg/response"
)

type BlockHandler struct {
	blockUseCase *usecase.BlockUseCase
}

func NewBlockHandler(blockUseCase *usecase.BlockUseCase) *BlockHandler {
	return &BlockHandler{
		blockUseCase: blockUseCase,
	}
}

type blockRequest struct {
	BlockedUID string `json:"blocked_uid" validate:"required"`
}

func (h *BlockHandler) Block(c echo.Context) error {
	var req blockRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.blockUseCase.Block(c.Request().Context(), userID, req.BlockedUID); err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"status": "blocked"})
}

func (h *BlockHandler) Unblock(c echo.Context) error {
	blockedUID := c.Param("uid")
	if blockedUID == "" {
		return response.Error(c, errors.BadRequest("Blocked uid is required", nil))
	}

	userID := c.Get("uid").(string)

	if err := h.blockUseCase.Unblock(c.Request().Context(), userID, blockedUID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "unblocked"})
}

func (h *BlockHandler) ListBlocks(c echo.Context) error {
	userID := c.Get("uid").(string)

	blocks, err := h.blockUseCase.ListBlocks(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, blocks)
}
