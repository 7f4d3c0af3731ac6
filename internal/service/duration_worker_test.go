package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vidshare/vidshare-go/internal/model"
)

type fakeBackfillStore struct {
	mu      sync.Mutex
	missing []model.Video
	stored  map[string]string
	listErr error
}

func (f *fakeBackfillStore) ListMissingDurations(_ context.Context, limit int) ([]model.Video, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.missing) > limit {
		return f.missing[:limit], nil
	}
	return f.missing, nil
}

func (f *fakeBackfillStore) SetDuration(_ context.Context, id, iso string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[id] = iso
	return nil
}

func TestDurationWorker_Backfill(t *testing.T) {
	store := &fakeBackfillStore{
		missing: []model.Video{
			{ID: "1", Type: model.SourceExternal, YoutubeID: strp("ok-1")},
			{ID: "2", Type: model.SourceExternal, YoutubeID: strp("ok-2")},
			{ID: "3", Type: model.SourceExternal, YoutubeID: strp("broken")},
			{ID: "4", Type: model.SourceExternal},
		},
		stored: map[string]string{},
	}
	fetcher := &fakeFetcher{durations: map[string]string{"ok-1": "PT1M", "ok-2": "PT2H"}}
	w := NewDurationWorker(store, NewDurationService(fetcher, nil, nil), 0)

	stored, missing, err := w.Backfill(context.Background())
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if stored != 2 || missing != 4 {
		t.Errorf("stored=%d missing=%d, want 2/4", stored, missing)
	}
	if store.stored["1"] != "PT1M" || store.stored["2"] != "PT2H" {
		t.Errorf("stored = %v", store.stored)
	}
	if _, ok := store.stored["3"]; ok {
		t.Error("failed fetch must not be stored")
	}
}

func TestDurationWorker_BackfillListError(t *testing.T) {
	store := &fakeBackfillStore{listErr: errors.New("db down"), stored: map[string]string{}}
	w := NewDurationWorker(store, NewDurationService(&fakeFetcher{}, nil, nil), 0)

	if _, _, err := w.Backfill(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
