package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/vidshare/vidshare-go/internal/middleware"
	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/service"
)

// Rater records user ratings.
type Rater interface {
	Rate(ctx context.Context, videoID, userID string, score int, ip string) (*model.RatingResponse, error)
}

type RatingHandler struct {
	svc Rater
}

func NewRatingHandler(svc Rater) *RatingHandler {
	return &RatingHandler{svc: svc}
}

// Rate handles POST /api/videos/:id/ratings
func (h *RatingHandler) Rate(c fiber.Ctx) error {
	videoID, errMsg := middleware.ValidateUUID("id", c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var req model.RatingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON")
	}
	if errMsg := middleware.ValidateRating(req.Score); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Rate(c.Context(), videoID, middleware.UserID(c), req.Score, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVideoNotFound):
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Video not found")
		case errors.Is(err, service.ErrInvalidScore):
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
		}
		middleware.Logger.Error().Err(err).Str("video_id", videoID).Msg("rating failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save rating")
	}
	return c.JSON(resp)
}
