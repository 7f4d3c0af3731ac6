package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/vidshare/vidshare-go/internal/middleware"
	"github.com/vidshare/vidshare-go/internal/service"
)

type ChannelHandler struct {
	svc *service.ChannelService
}

func NewChannelHandler(svc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{svc: svc}
}

// GetByUsername handles GET /api/channels/:username
func (h *ChannelHandler) GetByUsername(c fiber.Ctx) error {
	username, errMsg := middleware.ValidateUsername(c.Params("username"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Lookup(c.Context(), username)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Channel not found")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup channel")
	}

	return c.JSON(resp)
}
