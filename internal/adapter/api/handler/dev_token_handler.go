package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nyxscore/connectone-sub003/internal/infrastructure/firebase"
	"github.com/nyxscore/connectone-sub003/pkg/response"
)

// DevTokenHandler mints local development tokens. Its routes are mounted
// only when ENVIRONMENT=development.
type DevTokenHandler struct {
	devTokens *firebase.DevTokenGenerator
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(devTokens *firebase.DevTokenGenerator) *DevTokenHandler {
	return &DevTokenHandler{
		devTokens: devTokens,
	}
}

func SetupDevTokenHandler(devTokens *firebase.DevTokenGenerator) {
	devTokenHandler = NewDevTokenHandler(devTokens)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

type devTokenRequest struct {
	UID   string `json:"uid" validate:"required"`
	Admin bool   `json:"admin"`
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	token, err := h.devTokens.Generate(req.UID, req.Admin)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"uid":   req.UID,
		"admin": req.Admin,
	})
}
