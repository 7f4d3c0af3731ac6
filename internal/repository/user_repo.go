package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidshare/vidshare-go/internal/model"
)

const profileColumns = `id::text, username, avatar_url, banner_url, is_moderator, is_admin, created_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Username, &p.AvatarURL, &p.BannerURL, &p.IsModerator, &p.IsAdmin, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID returns a single profile by its uuid.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// FindByUsername returns a single profile by username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username))
}

// GetStats returns aggregate statistics from all tables.
func (r *UserRepo) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM videos) AS total_videos,
			(SELECT COUNT(*) FROM videos WHERE is_verified = false AND is_refused = false) AS pending_videos,
			(SELECT COUNT(*) FROM videos WHERE is_verified = true) AS verified_videos,
			(SELECT COUNT(*) FROM videos WHERE is_refused = true) AS refused_videos,
			(SELECT COUNT(*) FROM ratings) AS total_ratings,
			(SELECT COUNT(*) FROM profiles) AS total_users,
			(SELECT COUNT(*) FROM profiles WHERE COALESCE(is_moderator, is_admin, false)) AS moderators`

	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalVideos, &stats.PendingVideos, &stats.VerifiedVideos, &stats.RefusedVideos,
		&stats.TotalRatings, &stats.TotalUsers, &stats.Moderators,
	)
	if err != nil {
		return nil, err
	}

	themeQuery := `
		SELECT theme, COUNT(*) AS total
		FROM videos, unnest(themes) AS theme
		WHERE is_verified = true
		GROUP BY theme
		ORDER BY total DESC
		LIMIT 10`

	rows, err := r.pool.Query(ctx, themeQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.TopThemes = make(map[string]int)
	for rows.Next() {
		var theme string
		var count int
		if err := rows.Scan(&theme, &count); err != nil {
			return nil, err
		}
		stats.TopThemes[theme] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &stats, nil
}
