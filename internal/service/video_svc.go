package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/moderation"
	"github.com/vidshare/vidshare-go/internal/repository"
)

const (
	FeedLimit  = 100
	QueueLimit = 50
)

type VideoService struct {
	repo      *repository.VideoRepo
	users     *repository.UserRepo
	ratings   *RatingService
	durations *DurationService
	cache     *CacheService
}

func NewVideoService(repo *repository.VideoRepo, users *repository.UserRepo, ratings *RatingService, durations *DurationService, cache *CacheService) *VideoService {
	return &VideoService{repo: repo, users: users, ratings: ratings, durations: durations, cache: cache}
}

// Feed returns verified videos, optionally filtered by theme.
// Uses cache-aside: check Redis first, fall back to DB, then populate cache.
func (s *VideoService) Feed(ctx context.Context, theme string) ([]model.VideoResponse, error) {
	if cached, err := s.cache.GetFeed(ctx, theme); err != nil {
		log.Warn().Err(err).Msg("cache: feed get error")
	} else if cached != nil {
		var resp []model.VideoResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return resp, nil
		}
	}

	videos, err := s.repo.List(ctx, theme, FeedLimit)
	if err != nil {
		return nil, err
	}
	resp := s.BuildResponses(ctx, videos)

	if err := s.cache.SetFeed(ctx, theme, resp); err != nil {
		log.Warn().Err(err).Msg("cache: feed set error")
	}
	return resp, nil
}

// Detail returns one video. Videos that are not verified are only visible to
// their uploader and to moderators. viewerID may be empty.
func (s *VideoService) Detail(ctx context.Context, id, viewerID string) (*model.VideoResponse, error) {
	resp, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if resp.Status != moderation.StatusVerified.String() {
		visible, err := s.canSeeUnpublished(ctx, resp, viewerID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, ErrVideoNotFound
		}
	}

	if viewerID != "" && s.ratings != nil {
		rating, err := s.ratings.UserRating(ctx, id, viewerID)
		if err != nil {
			return nil, err
		}
		resp.UserRating = rating
	}
	return resp, nil
}

func (s *VideoService) lookup(ctx context.Context, id string) (*model.VideoResponse, error) {
	if cached, err := s.cache.GetVideo(ctx, id); err != nil {
		log.Warn().Err(err).Msg("cache: video get error")
	} else if cached != nil {
		var resp model.VideoResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return &resp, nil
		}
	}

	v, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}

	resp := ToVideoResponse(*v, s.durations.Display(ctx, *v))
	// Unpublished videos change state often; only cache public ones
	if resp.Status == moderation.StatusVerified.String() {
		if err := s.cache.SetVideo(ctx, id, resp); err != nil {
			log.Warn().Err(err).Msg("cache: video set error")
		}
	}
	return &resp, nil
}

func (s *VideoService) canSeeUnpublished(ctx context.Context, v *model.VideoResponse, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	if v.AuthorID != nil && *v.AuthorID == viewerID {
		return true, nil
	}
	p, err := s.users.FindByID(ctx, viewerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.CanModerate(), nil
}

// Queue returns pending videos for moderators, oldest first.
func (s *VideoService) Queue(ctx context.Context) ([]model.VideoResponse, error) {
	videos, err := s.repo.ListPending(ctx, QueueLimit)
	if err != nil {
		return nil, err
	}
	return s.BuildResponses(ctx, videos), nil
}

// BuildResponses converts rows to API responses with display durations.
func (s *VideoService) BuildResponses(ctx context.Context, videos []model.Video) []model.VideoResponse {
	displays := s.durations.DisplayAll(ctx, videos)
	responses := make([]model.VideoResponse, 0, len(videos))
	for i, v := range videos {
		responses = append(responses, ToVideoResponse(v, displays[i]))
	}
	return responses
}

// ToVideoResponse maps a stored video to its public shape.
func ToVideoResponse(v model.Video, durationDisplay string) model.VideoResponse {
	themes := v.Themes
	if themes == nil {
		themes = []string{}
	}
	return model.VideoResponse{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		Type:            v.Type,
		URL:             v.URL,
		YoutubeID:       v.YoutubeID,
		Themes:          themes,
		Thumbnail:       v.Thumbnail,
		QualityScore:    v.QualityScore,
		DurationDisplay: durationDisplay,
		AuthorID:        v.UserID,
		Status:          moderation.StatusOf(v.Moderation).String(),
		CreatedAt:       v.CreatedAt,
	}
}
