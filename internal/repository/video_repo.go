package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidshare/vidshare-go/internal/model"
)

// ErrStaleVersion is returned by UpdateModeration when another writer bumped
// the moderation version first.
var ErrStaleVersion = errors.New("moderation version changed")

const videoColumns = `
	v.id::text, v.user_id::text, v.title, v.description, v.type, v.url, v.youtube_id,
	v.themes, v.duration, v.thumbnail, v.quality_score, v.created_at,
	v.is_verified, v.is_refused, v.verified_once, v.refused_once,
	v.verified_once_user_id::text, v.refused_once_user_id::text, v.moderation_version`

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

func scanVideo(row pgx.Row) (model.Video, error) {
	var v model.Video
	var typ string
	err := row.Scan(
		&v.ID, &v.UserID, &v.Title, &v.Description, &typ, &v.URL, &v.YoutubeID,
		&v.Themes, &v.RawDuration, &v.Thumbnail, &v.QualityScore, &v.CreatedAt,
		&v.Moderation.IsVerified, &v.Moderation.IsRefused,
		&v.Moderation.VerifiedOnce, &v.Moderation.RefusedOnce,
		&v.Moderation.VerifiedOnceBy, &v.Moderation.RefusedOnceBy, &v.ModerationVersion,
	)
	v.Type = model.SourceType(typ)
	return v, err
}

func collectVideos(rows pgx.Rows) ([]model.Video, error) {
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// FindByID returns a single video regardless of moderation status.
func (r *VideoRepo) FindByID(ctx context.Context, id string) (*model.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos v WHERE v.id = $1`

	v, err := scanVideo(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns verified videos, optionally restricted to one theme, best rated first.
func (r *VideoRepo) List(ctx context.Context, theme string, limit int) ([]model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos v
		WHERE v.is_verified = true
		  AND ($1 = '' OR $1 = ANY(v.themes))
		ORDER BY v.quality_score DESC NULLS LAST, v.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, theme, limit)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

// ListByUploader returns the verified videos of the profile with the given username.
func (r *VideoRepo) ListByUploader(ctx context.Context, username string, limit int) ([]model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos v
		JOIN profiles p ON p.id = v.user_id
		WHERE p.username = $1 AND v.is_verified = true
		ORDER BY v.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

// ListPending returns the moderation queue, oldest first.
func (r *VideoRepo) ListPending(ctx context.Context, limit int) ([]model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos v
		WHERE v.is_verified = false AND v.is_refused = false
		ORDER BY v.created_at ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

// FindModeration returns the moderation columns and their version.
func (r *VideoRepo) FindModeration(ctx context.Context, id string) (model.ModerationFields, int64, error) {
	var f model.ModerationFields
	var version int64
	err := r.pool.QueryRow(ctx, `
		SELECT is_verified, is_refused, verified_once, refused_once,
		       verified_once_user_id::text, refused_once_user_id::text, moderation_version
		FROM videos
		WHERE id = $1`, id).Scan(
		&f.IsVerified, &f.IsRefused, &f.VerifiedOnce, &f.RefusedOnce,
		&f.VerifiedOnceBy, &f.RefusedOnceBy, &version,
	)
	return f, version, err
}

// UpdateModeration writes the moderation columns if the stored version still
// equals expected, and records ev in the same transaction. It returns the new
// version, or ErrStaleVersion when the compare-and-swap lost.
func (r *VideoRepo) UpdateModeration(ctx context.Context, id string, expected int64, f model.ModerationFields, ev model.ModerationEvent) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var next int64
	err = tx.QueryRow(ctx, `
		UPDATE videos
		SET is_verified = $3, is_refused = $4,
		    verified_once = $5, refused_once = $6,
		    verified_once_user_id = $7, refused_once_user_id = $8,
		    moderation_version = moderation_version + 1
		WHERE id = $1 AND moderation_version = $2
		RETURNING moderation_version`,
		id, expected,
		f.IsVerified, f.IsRefused, f.VerifiedOnce, f.RefusedOnce,
		f.VerifiedOnceBy, f.RefusedOnceBy,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrStaleVersion
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO moderation_events (video_id, moderator_id, action, from_status, to_status)
		VALUES ($1, $2, $3, $4, $5)`,
		id, ev.ModeratorID, ev.Action, ev.FromStatus, ev.ToStatus)
	if err != nil {
		return 0, fmt.Errorf("insert moderation event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return next, nil
}

// SetDuration stores an externally resolved ISO-8601 duration.
func (r *VideoRepo) SetDuration(ctx context.Context, id, iso string) error {
	_, err := r.pool.Exec(ctx, `UPDATE videos SET duration = to_jsonb($2::text) WHERE id = $1`, id, iso)
	return err
}

// ListMissingDurations returns external clips that have no stored duration yet.
func (r *VideoRepo) ListMissingDurations(ctx context.Context, limit int) ([]model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos v
		WHERE v.type = 'youtube'
		  AND v.youtube_id IS NOT NULL
		  AND (v.duration IS NULL OR v.duration = 'null'::jsonb OR v.duration = '""'::jsonb)
		ORDER BY v.created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectVideos(rows)
}

// ListModerationEvents returns audit rows recorded after since, oldest first.
func (r *VideoRepo) ListModerationEvents(ctx context.Context, since time.Time, limit int) ([]model.ModerationEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, video_id::text, moderator_id::text, action, from_status, to_status, created_at
		FROM moderation_events
		WHERE created_at > $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ModerationEvent
	for rows.Next() {
		var e model.ModerationEvent
		if err := rows.Scan(&e.ID, &e.VideoID, &e.ModeratorID, &e.Action, &e.FromStatus, &e.ToStatus, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
