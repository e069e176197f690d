package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/usecase"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
	"github.com/nyxscore/connectone-sub003/pkg/response"
	"github.com/nyxscore/connectone-sub003/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createThreadRequest struct {
	SellerUID string `json:"seller_uid" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
}

type sendMessageRequest struct {
	Content  string `json:"content" validate:"required,max=4000"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

func (h *ChatHandler) CreateThread(c echo.Context) error {
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	thread, err := h.chatUseCase.GetOrCreateThread(c.Request().Context(), userID, usecase.CreateThreadInput{
		SellerUID: req.SellerUID,
		ItemID:    req.ItemID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, thread)
}

func (h *ChatHandler) ListThreads(c echo.Context) error {
	pagination := utils.GetPaginationParams(c)
	userID := c.Get("uid").(string)

	threads, total, err := h.chatUseCase.ListThreads(c.Request().Context(), userID, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, threads, total, pagination.Page, pagination.PageSize)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	chatID := c.Param("id")
	if chatID == "" {
		return response.Error(c, errors.BadRequest("Chat ID is required", nil))
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, chatID, usecase.SendMessageInput{
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	chatID := c.Param("id")
	if chatID == "" {
		return response.Error(c, errors.BadRequest("Chat ID is required", nil))
	}

	pagination := utils.GetPaginationParams(c)
	userID := c.Get("uid").(string)

	messages, total, err := h.chatUseCase.ListMessages(c.Request().Context(), userID, chatID, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, pagination.Page, pagination.PageSize)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	chatID := c.Param("id")
	if chatID == "" {
		return response.Error(c, errors.BadRequest("Chat ID is required", nil))
	}

	userID := c.Get("uid").(string)

	thread, err := h.chatUseCase.MarkRead(c.Request().Context(), userID, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, thread)
}

func (h *ChatHandler) MarkMessageRead(c echo.Context) error {
	chatID := c.Param("id")
	messageID := c.Param("messageId")
	if chatID == "" || messageID == "" {
		return response.Error(c, errors.BadRequest("Chat ID and message ID are required", nil))
	}

	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkMessageRead(c.Request().Context(), userID, chatID, messageID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "ok"})
}

func (h *ChatHandler) DeleteThread(c echo.Context) error {
	chatID := c.Param("id")
	if chatID == "" {
		return response.Error(c, errors.BadRequest("Chat ID is required", nil))
	}

	userID := c.Get("uid").(string)

	if err := h.chatUseCase.SoftDelete(c.Request().Context(), userID, chatID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "deleted"})
}
