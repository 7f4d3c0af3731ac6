package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/vidshare/vidshare-go/internal/metrics"
	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/repository"
	"github.com/vidshare/vidshare-go/pkg/hash"
)

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

var ErrInvalidScore = fmt.Errorf("score must be between %d and %d", MinRatingScore, MaxRatingScore)

type RatingService struct {
	repo   *repository.RatingRepo
	cache  *CacheService
	ipSalt string
}

func NewRatingService(repo *repository.RatingRepo, cache *CacheService, ipSalt string) *RatingService {
	return &RatingService{repo: repo, cache: cache, ipSalt: ipSalt}
}

// Rate records the user's score for a verified video. The quality score is
// recomputed asynchronously by QualityWorker.
func (s *RatingService) Rate(ctx context.Context, videoID, userID string, score int, ip string) (*model.RatingResponse, error) {
	if score < MinRatingScore || score > MaxRatingScore {
		return nil, ErrInvalidScore
	}

	err := s.repo.Upsert(ctx, videoID, userID, score, hash.HashIP(ip, s.ipSalt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	metrics.RatingsTotal.Inc()

	if s.cache != nil {
		if err := s.cache.InvalidateVideo(ctx, videoID); err != nil {
			log.Warn().Err(err).Msg("cache: invalidate video error")
		}
	}

	quality, err := s.repo.QualityScore(ctx, videoID)
	if err != nil {
		return nil, err
	}

	return &model.RatingResponse{
		Success:      true,
		Score:        score,
		QualityScore: quality,
	}, nil
}

// UserRating returns the user's own score for a video, or nil.
func (s *RatingService) UserRating(ctx context.Context, videoID, userID string) (*int, error) {
	if userID == "" {
		return nil, nil
	}
	return s.repo.FindUserRating(ctx, videoID, userID)
}
