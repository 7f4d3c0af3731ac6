package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vidshare/vidshare-go/internal/model"
)

const backfillBatchSize = 50

// DurationBackfillStore lists external clips without a stored duration and
// persists fetched ones.
type DurationBackfillStore interface {
	ListMissingDurations(ctx context.Context, limit int) ([]model.Video, error)
	SetDuration(ctx context.Context, id, iso string) error
}

// DurationWorker is a periodic background job that stores the YouTube duration
// of external clips, so feed requests rarely scrape watch pages.
type DurationWorker struct {
	store    DurationBackfillStore
	durSvc   *DurationService
	interval time.Duration
}

// NewDurationWorker creates a worker that ticks every interval.
func NewDurationWorker(store DurationBackfillStore, durSvc *DurationService, interval time.Duration) *DurationWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &DurationWorker{
		store:    store,
		durSvc:   durSvc,
		interval: interval,
	}
}

// Start runs one tick immediately, then every interval until ctx is done.
func (w *DurationWorker) Start(ctx context.Context) error {
	log.Info().Dur("interval", w.interval).Msg("duration-worker: starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			log.Info().Msg("duration-worker: stopping (context cancelled)")
			return nil
		}
	}
}

func (w *DurationWorker) tick(ctx context.Context) {
	start := time.Now()

	stored, missing, err := w.Backfill(ctx)
	if err != nil {
		log.Error().Err(err).Msg("duration-worker: error")
		return
	}

	if missing > 0 {
		log.Info().
			Int("stored", stored).
			Int("missing", missing).
			Dur("elapsed", time.Since(start)).
			Msg("duration-worker: tick complete")
	}
}

// Backfill fetches durations for one batch of clips. It returns how many were
// stored and how many were missing.
func (w *DurationWorker) Backfill(ctx context.Context) (stored, missing int, err error) {
	videos, err := w.store.ListMissingDurations(ctx, backfillBatchSize)
	if err != nil {
		return 0, 0, err
	}

	var n atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.durSvc.concurrency)
	for _, v := range videos {
		if v.YoutubeID == nil {
			continue
		}
		g.Go(func() error {
			iso, ok := w.durSvc.Fetch(gctx, *v.YoutubeID)
			if !ok {
				return nil
			}
			if err := w.store.SetDuration(gctx, v.ID, iso); err != nil {
				log.Warn().Err(err).Str("video_id", v.ID).Msg("duration-worker: store error")
				return nil
			}
			n.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(n.Load()), len(videos), nil
}
