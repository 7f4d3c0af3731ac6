package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/vidshare/vidshare-go/internal/middleware"
	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/moderation"
	"github.com/vidshare/vidshare-go/internal/service"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
	defaultHistoryRange = 24 * time.Hour
)

// Moderator applies moderator actions and reads the audit log.
type Moderator interface {
	Act(ctx context.Context, videoID, moderatorID string, kind moderation.Kind) (*model.ModerationResponse, error)
	History(ctx context.Context, since time.Time, limit int) (*model.ModerationHistoryResponse, error)
}

// QueueLister lists videos awaiting moderation.
type QueueLister interface {
	Queue(ctx context.Context) ([]model.VideoResponse, error)
}

type ModerationHandler struct {
	svc   Moderator
	queue QueueLister
}

func NewModerationHandler(svc Moderator, queue QueueLister) *ModerationHandler {
	return &ModerationHandler{svc: svc, queue: queue}
}

// Act handles POST /api/videos/:id/moderation
func (h *ModerationHandler) Act(c fiber.Ctx) error {
	videoID, errMsg := middleware.ValidateUUID("id", c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var req model.ModerationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON")
	}
	kind, err := moderation.ParseKind(req.Action)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ACTION", "action must be \"approve\" or \"refuse\"")
	}

	resp, err := h.svc.Act(c.Context(), videoID, middleware.UserID(c), kind)
	if err != nil {
		return h.actError(c, kind, videoID, err)
	}
	return c.JSON(resp)
}

func (h *ModerationHandler) actError(c fiber.Ctx, kind moderation.Kind, videoID string, err error) error {
	switch {
	case errors.Is(err, service.ErrVideoNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Video not found")
	case errors.Is(err, moderation.ErrDuplicateVote):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE_VOTE", service.RejectionMessage(kind, err))
	case errors.Is(err, moderation.ErrAlreadyFinalized):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "ALREADY_FINALIZED", service.RejectionMessage(kind, err))
	case errors.Is(err, moderation.ErrInvalidAction):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ACTION", service.RejectionMessage(kind, err))
	case errors.Is(err, service.ErrPersistence):
		middleware.Logger.Error().Err(err).Str("video_id", videoID).Msg("moderation write failed")
		c.Set(fiber.HeaderRetryAfter, "1")
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "PERSISTENCE_FAILURE", "Moderation could not be saved. Please try again.")
	}

	middleware.Logger.Error().Err(err).Str("video_id", videoID).Msg("moderation action failed")
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to apply moderation action")
}

// Queue handles GET /api/moderation/queue
func (h *ModerationHandler) Queue(c fiber.Ctx) error {
	videos, err := h.queue.Queue(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load moderation queue")
	}
	return c.JSON(fiber.Map{"videos": videos})
}

// History handles GET /api/moderation/history?since=TIMESTAMP&limit=N
func (h *ModerationHandler) History(c fiber.Ctx) error {
	since := time.Now().Add(-defaultHistoryRange)
	if s := fiber.Query[string](c, "since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM", "since must be a valid RFC3339 timestamp")
		}
		since = t
	}

	limit := defaultHistoryLimit
	if s := fiber.Query[string](c, "limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM", "limit must be between 1 and 500")
		}
		limit = n
	}

	resp, err := h.svc.History(c.Context(), since, limit)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch moderation history")
	}
	return c.JSON(resp)
}
