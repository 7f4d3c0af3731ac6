package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/repository"
)

type UserService struct {
	repo *repository.UserRepo
}

func NewUserService(repo *repository.UserRepo) *UserService {
	return &UserService{repo: repo}
}

// Lookup returns the public profile for a user id.
func (s *UserService) Lookup(ctx context.Context, userID string) (*model.ProfileResponse, error) {
	p, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	resp := ToProfileResponse(p)
	return &resp, nil
}

// CanModerate reports whether the user may approve or refuse videos.
// Unknown users cannot.
func (s *UserService) CanModerate(ctx context.Context, userID string) (bool, error) {
	p, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.CanModerate(), nil
}

// GetStats returns aggregate platform statistics.
func (s *UserService) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	return s.repo.GetStats(ctx)
}

// ToProfileResponse maps a profile row to its public shape.
func ToProfileResponse(p *model.Profile) model.ProfileResponse {
	return model.ProfileResponse{
		ID:          p.ID,
		Username:    p.Username,
		AvatarURL:   p.AvatarURL,
		BannerURL:   p.BannerURL,
		AccountAge:  accountAgeDays(p.CreatedAt, time.Now()),
		IsModerator: p.CanModerate(),
	}
}

func accountAgeDays(created, now time.Time) int {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return int(math.Floor(now.Sub(created).Hours() / 24))
}
