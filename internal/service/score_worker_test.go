package service

import (
	"context"
	"testing"
)

func TestQualityWorker_FlushBatchesDuplicates(t *testing.T) {
	store := &fakeScoreStore{
		scores:  map[string][]int{"a": {5, 4}, "b": {1}},
		written: map[string]*float64{},
	}
	w := NewQualityWorker(nil, NewScoreService(store), NewCacheServiceWithClient(nil), 0)

	for i := 0; i < 50; i++ {
		w.Enqueue("a")
	}
	w.Enqueue("b")
	w.Enqueue("")

	if got := len(w.pending); got != 2 {
		t.Fatalf("pending = %d, want 2 distinct videos", got)
	}

	w.flush(context.Background())

	if len(w.pending) != 0 {
		t.Errorf("pending not drained: %d", len(w.pending))
	}
	if got := store.written["a"]; got == nil || *got != 4.5 {
		t.Errorf("a quality = %v, want 4.5", got)
	}
	if got := store.written["b"]; got == nil || *got != 1 {
		t.Errorf("b quality = %v, want 1", got)
	}
}

func TestQualityWorker_FlushEmptyIsNoop(t *testing.T) {
	store := &fakeScoreStore{written: map[string]*float64{}}
	w := NewQualityWorker(nil, NewScoreService(store), nil, 0)

	w.flush(context.Background())
	if len(store.written) != 0 {
		t.Errorf("writes on empty flush: %v", store.written)
	}
	if w.window <= 0 {
		t.Errorf("window = %s, want default", w.window)
	}
}
