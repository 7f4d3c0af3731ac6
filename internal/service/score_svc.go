package service

import (
	"context"
	"math"
	"time"

	"github.com/vidshare/vidshare-go/internal/metrics"
)

// ScoreStore reads ratings and writes the derived quality score.
type ScoreStore interface {
	Scores(ctx context.Context, videoID string) ([]int, error)
	SetQualityScore(ctx context.Context, videoID string, score *float64) error
}

// ScoreService recalculates a video's quality score after rating changes.
type ScoreService struct {
	store ScoreStore
}

func NewScoreService(store ScoreStore) *ScoreService {
	return &ScoreService{store: store}
}

// RecalculateQualityScore sets quality_score to the mean of all ratings,
// rounded to two decimals, or NULL when the video has none.
func (s *ScoreService) RecalculateQualityScore(ctx context.Context, videoID string) error {
	start := time.Now()
	defer func() {
		metrics.QualityRecalcDuration.Observe(time.Since(start).Seconds())
	}()

	scores, err := s.store.Scores(ctx, videoID)
	if err != nil {
		return err
	}
	return s.store.SetQualityScore(ctx, videoID, AverageScore(scores))
}

// AverageScore returns the mean of scores rounded to two decimals, or nil for
// no scores.
func AverageScore(scores []int) *float64 {
	if len(scores) == 0 {
		return nil
	}

	var sum int
	for _, s := range scores {
		sum += s
	}
	avg := math.Round(float64(sum)/float64(len(scores))*100) / 100
	return &avg
}
