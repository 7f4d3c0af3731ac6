package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RatingRepo struct {
	pool *pgxpool.Pool
}

func NewRatingRepo(pool *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{pool: pool}
}

// Upsert inserts or replaces a user's rating on a verified video and notifies
// the quality worker. It returns pgx.ErrNoRows when the video is not public.
func (r *RatingRepo) Upsert(ctx context.Context, videoID, userID string, score int, ipHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Ratings are only accepted on public videos
	var verified bool
	err = tx.QueryRow(ctx, `SELECT is_verified FROM videos WHERE id = $1`, videoID).Scan(&verified)
	if err != nil {
		return err
	}
	if !verified {
		return pgx.ErrNoRows
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ratings (video_id, user_id, score, ip_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id, user_id) DO UPDATE
		SET score = EXCLUDED.score, ip_hash = EXCLUDED.ip_hash, updated_at = NOW()`,
		videoID, userID, score, ipHash)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `SELECT pg_notify('rating_changes', $1)`, videoID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindUserRating returns the user's score for a video, or nil if none.
func (r *RatingRepo) FindUserRating(ctx context.Context, videoID, userID string) (*int, error) {
	var score int
	err := r.pool.QueryRow(ctx, `
		SELECT score FROM ratings WHERE video_id = $1 AND user_id = $2`,
		videoID, userID).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// Scores returns every score recorded for a video.
func (r *RatingRepo) Scores(ctx context.Context, videoID string) ([]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT score FROM ratings WHERE video_id = $1`, videoID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// SetQualityScore stores the averaged score, or NULL when there are no ratings.
func (r *RatingRepo) SetQualityScore(ctx context.Context, videoID string, score *float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE videos SET quality_score = $2 WHERE id = $1`, videoID, score)
	return err
}

// QualityScore returns the stored average for a video, nil when unrated.
func (r *RatingRepo) QualityScore(ctx context.Context, videoID string) (*float64, error) {
	var score *float64
	err := r.pool.QueryRow(ctx, `SELECT quality_score FROM videos WHERE id = $1`, videoID).Scan(&score)
	return score, err
}
