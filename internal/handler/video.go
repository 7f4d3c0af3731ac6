package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/vidshare/vidshare-go/internal/middleware"
	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/service"
)

// VideoReader serves the public feed and video pages.
type VideoReader interface {
	Feed(ctx context.Context, theme string) ([]model.VideoResponse, error)
	Detail(ctx context.Context, id, viewerID string) (*model.VideoResponse, error)
}

type VideoHandler struct {
	svc VideoReader
}

func NewVideoHandler(svc VideoReader) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// Feed handles GET /api/videos?theme=X
func (h *VideoHandler) Feed(c fiber.Ctx) error {
	theme, errMsg := middleware.ValidateTheme(fiber.Query[string](c, "theme"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM", errMsg)
	}

	videos, err := h.svc.Feed(c.Context(), theme)
	if err != nil {
		middleware.Logger.Error().Err(err).Msg("feed lookup failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load videos")
	}
	return c.JSON(fiber.Map{"videos": videos})
}

// Detail handles GET /api/videos/:id
func (h *VideoHandler) Detail(c fiber.Ctx) error {
	videoID, errMsg := middleware.ValidateUUID("id", c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	video, err := h.svc.Detail(c.Context(), videoID, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Video not found")
		}
		middleware.Logger.Error().Err(err).Msg("video lookup failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to lookup video")
	}
	return c.JSON(video)
}
