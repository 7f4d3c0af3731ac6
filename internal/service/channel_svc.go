package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/repository"
)

var ErrProfileNotFound = errors.New("profile not found")

const channelVideoLimit = 100

// ChannelService builds uploader pages: a public profile plus its verified videos.
type ChannelService struct {
	users  *repository.UserRepo
	videos *VideoService
	repo   *repository.VideoRepo
	cache  *CacheService
}

func NewChannelService(users *repository.UserRepo, repo *repository.VideoRepo, videos *VideoService, cache *CacheService) *ChannelService {
	return &ChannelService{users: users, repo: repo, videos: videos, cache: cache}
}

// Lookup returns the uploader page for a username.
// Uses cache-aside: check Redis first, fall back to DB, then populate cache.
func (s *ChannelService) Lookup(ctx context.Context, username string) (*model.ChannelResponse, error) {
	if cached, err := s.cache.GetChannel(ctx, username); err != nil {
		log.Warn().Err(err).Msg("cache: channel get error")
	} else if cached != nil {
		var resp model.ChannelResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return &resp, nil
		}
	}

	p, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByUploader(ctx, username, channelVideoLimit)
	if err != nil {
		return nil, err
	}

	resp := &model.ChannelResponse{
		Profile: ToProfileResponse(p),
		Videos:  s.videos.BuildResponses(ctx, rows),
	}

	if err := s.cache.SetChannel(ctx, username, resp); err != nil {
		log.Warn().Err(err).Msg("cache: channel set error")
	}

	return resp, nil
}
