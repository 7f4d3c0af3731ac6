package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/vidshare/vidshare-go/internal/metrics"
	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/moderation"
	"github.com/vidshare/vidshare-go/internal/repository"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	// ErrPersistence means the store rejected the write. Nothing was committed
	// and the caller may retry.
	ErrPersistence = errors.New("moderation store unavailable")
)

const defaultModerationAttempts = 3

// ModerationStore is the persistence boundary for moderation state.
type ModerationStore interface {
	FindModeration(ctx context.Context, id string) (model.ModerationFields, int64, error)
	UpdateModeration(ctx context.Context, id string, expected int64, f model.ModerationFields, ev model.ModerationEvent) (int64, error)
	ListModerationEvents(ctx context.Context, since time.Time, limit int) ([]model.ModerationEvent, error)
}

// ModerationService applies moderator actions to stored videos.
type ModerationService struct {
	store       ModerationStore
	cache       *CacheService
	maxAttempts int
}

func NewModerationService(store ModerationStore, cache *CacheService) *ModerationService {
	return &ModerationService{store: store, cache: cache, maxAttempts: defaultModerationAttempts}
}

// Act applies one moderator action. Domain rejections come back as the
// moderation package sentinels; store failures wrap ErrPersistence.
func (s *ModerationService) Act(ctx context.Context, videoID, moderatorID string, kind moderation.Kind) (*model.ModerationResponse, error) {
	action := moderation.Action{Kind: kind, ModeratorID: moderatorID}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		fields, version, err := s.store.FindModeration(ctx, videoID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", ErrPersistence, err)
		}

		current, err := moderation.Decode(fields)
		if err != nil {
			log.Error().Err(err).Str("video_id", videoID).Msg("moderation: stored state rejected")
			return nil, err
		}

		next, err := moderation.Apply(current, action)
		if err != nil {
			metrics.ModerationActions.WithLabelValues(kind.String(), outcomeLabel(err)).Inc()
			return nil, err
		}

		encoded := moderation.Encode(next)
		ev := model.ModerationEvent{
			VideoID:     videoID,
			ModeratorID: moderatorID,
			Action:      kind.String(),
			FromStatus:  current.Status.String(),
			ToStatus:    next.Status.String(),
		}

		_, err = s.store.UpdateModeration(ctx, videoID, version, encoded, ev)
		if errors.Is(err, repository.ErrStaleVersion) {
			metrics.ModerationRetries.Inc()
			log.Debug().Str("video_id", videoID).Int("attempt", attempt).Msg("moderation: version race, retrying")
			continue
		}
		if err != nil {
			metrics.ModerationActions.WithLabelValues(kind.String(), "persistence_failure").Inc()
			return nil, fmt.Errorf("%w: write: %v", ErrPersistence, err)
		}

		metrics.ModerationActions.WithLabelValues(kind.String(), next.Status.String()).Inc()
		s.invalidate(ctx, videoID, next.Status)

		log.Info().
			Str("video_id", videoID).
			Str("action", kind.String()).
			Str("from", current.Status.String()).
			Str("to", next.Status.String()).
			Msg("moderation: action applied")

		return &model.ModerationResponse{
			Success:    true,
			Message:    OutcomeMessage(kind, next.Status),
			VideoID:    videoID,
			Status:     next.Status.String(),
			Moderation: encoded,
		}, nil
	}

	metrics.ModerationActions.WithLabelValues(kind.String(), "persistence_failure").Inc()
	return nil, fmt.Errorf("%w: gave up after %d concurrent updates", ErrPersistence, s.maxAttempts)
}

// History returns audit events recorded after since.
func (s *ModerationService) History(ctx context.Context, since time.Time, limit int) (*model.ModerationHistoryResponse, error) {
	events, err := s.store.ListModerationEvents(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.ModerationEvent{}
	}
	return &model.ModerationHistoryResponse{
		Events:   events,
		SyncedAt: time.Now().UTC(),
	}, nil
}

func (s *ModerationService) invalidate(ctx context.Context, videoID string, status moderation.Status) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateVideo(ctx, videoID); err != nil {
		log.Warn().Err(err).Str("video_id", videoID).Msg("cache: invalidate video error")
	}
	// Only a verification changes what the public feed shows
	if status == moderation.StatusVerified {
		if err := s.cache.InvalidateFeeds(ctx); err != nil {
			log.Warn().Err(err).Msg("cache: invalidate feeds error")
		}
	}
}

// OutcomeMessage is the user-facing message after a successful action.
func OutcomeMessage(kind moderation.Kind, status moderation.Status) string {
	switch status {
	case moderation.StatusVerified:
		return "Video verified successfully."
	case moderation.StatusRefused:
		return "Video refused successfully."
	}
	if kind == moderation.Approve {
		return "Approval recorded. A second moderator must approve before the video is published."
	}
	return "Refusal recorded. A second moderator must refuse before the video is removed."
}

// RejectionMessage is the user-facing message for a rejected action.
func RejectionMessage(kind moderation.Kind, err error) string {
	switch {
	case errors.Is(err, moderation.ErrDuplicateVote):
		if kind == moderation.Approve {
			return "You have already approved this video."
		}
		return "You have already refused this video."
	case errors.Is(err, moderation.ErrAlreadyFinalized):
		return "This video has already been moderated."
	}
	return "Moderation action could not be applied."
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, moderation.ErrDuplicateVote):
		return "duplicate_vote"
	case errors.Is(err, moderation.ErrAlreadyFinalized):
		return "already_finalized"
	default:
		return "invalid"
	}
}
