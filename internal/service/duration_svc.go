package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vidshare/vidshare-go/internal/duration"
	"github.com/vidshare/vidshare-go/internal/metrics"
	"github.com/vidshare/vidshare-go/internal/model"
)

const defaultDurationConcurrency = 8

// DurationFetcher looks up the ISO-8601 duration of an external clip.
type DurationFetcher interface {
	FetchDuration(ctx context.Context, youtubeID string) (string, error)
}

// DurationService resolves the display duration of videos. For external clips
// a cached YouTube duration wins, then the stored value (written by
// DurationWorker), and the watch page is scraped only when nothing is stored.
type DurationService struct {
	fetcher     DurationFetcher
	cache       *CacheService
	formatter   *duration.Formatter
	concurrency int
}

func NewDurationService(fetcher DurationFetcher, cache *CacheService, formatter *duration.Formatter) *DurationService {
	if formatter == nil {
		formatter = duration.NewFormatter(nil)
	}
	return &DurationService{
		fetcher:     fetcher,
		cache:       cache,
		formatter:   formatter,
		concurrency: defaultDurationConcurrency,
	}
}

// Raw returns the duration value to display for v. Lookup order for external
// clips: Redis, the stored (backfilled) value, then a live watch page fetch.
// A failed fetch falls back to the stored value.
func (s *DurationService) Raw(ctx context.Context, v model.Video) duration.Raw {
	stored := duration.FromJSON(v.RawDuration)
	if v.Type != model.SourceExternal || v.YoutubeID == nil || *v.YoutubeID == "" {
		return stored
	}
	ytID := *v.YoutubeID

	if s.cache != nil {
		cached, err := s.cache.GetDuration(ctx, ytID)
		if err != nil {
			log.Warn().Err(err).Msg("cache: duration get error")
		} else if cached != "" {
			return duration.Text(cached)
		}
	}

	if duration.Normalize(stored).Kind != duration.None {
		return stored
	}

	iso, ok := s.Fetch(ctx, ytID)
	if !ok {
		return stored
	}
	return duration.Text(iso)
}

// Fetch scrapes and caches one external duration.
func (s *DurationService) Fetch(ctx context.Context, youtubeID string) (string, bool) {
	if s.fetcher == nil {
		return "", false
	}

	iso, err := s.fetcher.FetchDuration(ctx, youtubeID)
	iso = strings.TrimSpace(iso)
	if err != nil || iso == "" {
		metrics.DurationFetches.WithLabelValues("error").Inc()
		log.Debug().Err(err).Str("youtube_id", youtubeID).Msg("duration: fetch failed")
		return "", false
	}
	metrics.DurationFetches.WithLabelValues("ok").Inc()

	if s.cache != nil {
		if err := s.cache.SetDuration(ctx, youtubeID, iso); err != nil {
			log.Warn().Err(err).Msg("cache: duration set error")
		}
	}
	return iso, true
}

// Display returns the formatted duration for one video.
func (s *DurationService) Display(ctx context.Context, v model.Video) string {
	return s.formatter.Display(s.Raw(ctx, v), v.Type)
}

// DisplayAll formats every video's duration, resolving external clips
// concurrently. The result is index-aligned with videos and never fails;
// unresolvable durations render as the unavailable string.
func (s *DurationService) DisplayAll(ctx context.Context, videos []model.Video) []string {
	out := make([]string, len(videos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range videos {
		g.Go(func() error {
			out[i] = s.Display(gctx, videos[i])
			return nil
		})
	}
	_ = g.Wait()

	return out
}
