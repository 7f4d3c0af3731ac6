package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// RatingChannel is the NOTIFY channel written by RatingRepo.Upsert.
const RatingChannel = "rating_changes"

// QualityWorker listens for PostgreSQL NOTIFY on rating_changes and batches
// quality score recalculations: a burst of ratings on one video inside the
// batch window triggers a single recalculation.
type QualityWorker struct {
	pool     *pgxpool.Pool
	scoreSvc *ScoreService
	cache    *CacheService
	window   time.Duration

	mu      sync.Mutex
	pending map[string]struct{} // video IDs waiting for recalculation
}

// NewQualityWorker creates a quality score recalculation worker.
func NewQualityWorker(pool *pgxpool.Pool, scoreSvc *ScoreService, cache *CacheService, window time.Duration) *QualityWorker {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &QualityWorker{
		pool:     pool,
		scoreSvc: scoreSvc,
		cache:    cache,
		window:   window,
		pending:  make(map[string]struct{}),
	}
}

// Start listens until ctx is cancelled, reconnecting after listen errors.
func (w *QualityWorker) Start(ctx context.Context) error {
	log.Info().Dur("window", w.window).Msg("quality-worker: starting")

	// The flusher outlives individual LISTEN connections
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		w.flushLoop(ctx)
	}()

	for {
		err := w.listenLoop(ctx)
		if ctx.Err() != nil {
			<-flushDone
			log.Info().Msg("quality-worker: stopping (context cancelled)")
			return nil
		}
		log.Warn().Err(err).Msg("quality-worker: listen error, reconnecting in 5s")
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
	}
}

// listenLoop acquires a dedicated connection, LISTENs on rating_changes and
// queues every notified video id.
func (w *QualityWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+RatingChannel); err != nil {
		return err
	}
	log.Info().Str("channel", RatingChannel).Msg("quality-worker: listening")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.Enqueue(notification.Payload)
	}
}

// Enqueue marks a video for recalculation in the next batch.
func (w *QualityWorker) Enqueue(videoID string) {
	if videoID == "" {
		return
	}
	w.mu.Lock()
	w.pending[videoID] = struct{}{}
	w.mu.Unlock()
}

func (w *QualityWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush before exit
			w.flush(context.Background())
			return
		}
	}
}

// drain swaps out the pending set.
func (w *QualityWorker) drain() map[string]struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	batch := w.pending
	w.pending = make(map[string]struct{})
	return batch
}

func (w *QualityWorker) flush(ctx context.Context) {
	batch := w.drain()
	if batch == nil {
		return
	}

	recalculated := 0
	for videoID := range batch {
		if err := w.scoreSvc.RecalculateQualityScore(ctx, videoID); err != nil {
			log.Error().Err(err).Str("video_id", videoID).Msg("quality-worker: recalculate error")
			continue
		}

		// Invalidate Redis cache so next read gets fresh data
		if w.cache != nil {
			if err := w.cache.InvalidateVideo(ctx, videoID); err != nil {
				log.Warn().Err(err).Str("video_id", videoID).Msg("quality-worker: cache invalidate error")
			}
			if err := w.cache.InvalidateFeeds(ctx); err != nil {
				log.Warn().Err(err).Msg("quality-worker: feed invalidate error")
			}
		}

		recalculated++
	}

	if recalculated > 0 {
		log.Info().Int("recalculated", recalculated).Int("notifications", len(batch)).Msg("quality-worker: batch complete")
	}
}
