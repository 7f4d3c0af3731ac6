package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/moderation"
	"github.com/vidshare/vidshare-go/internal/repository"
)

// memStore is an in-memory ModerationStore with the same compare-and-swap
// contract as the Postgres repository.
type memStore struct {
	mu       sync.Mutex
	fields   map[string]model.ModerationFields
	versions map[string]int64
	events   []model.ModerationEvent

	readErr  error
	writeErr error
	// beforeWrite runs under the lock before the version check, to simulate
	// a concurrent writer committing first.
	beforeWrite func(id string)
	writes      int
}

func newMemStore(ids ...string) *memStore {
	s := &memStore{
		fields:   make(map[string]model.ModerationFields),
		versions: make(map[string]int64),
	}
	for _, id := range ids {
		s.fields[id] = model.ModerationFields{}
	}
	return s
}

func (s *memStore) FindModeration(_ context.Context, id string) (model.ModerationFields, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return model.ModerationFields{}, 0, s.readErr
	}
	f, ok := s.fields[id]
	if !ok {
		return model.ModerationFields{}, 0, pgx.ErrNoRows
	}
	return f, s.versions[id], nil
}

func (s *memStore) UpdateModeration(_ context.Context, id string, expected int64, f model.ModerationFields, ev model.ModerationEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.beforeWrite != nil {
		s.beforeWrite(id)
	}
	if s.versions[id] != expected {
		return 0, repository.ErrStaleVersion
	}
	s.fields[id] = f
	s.versions[id]++
	ev.ID = int64(len(s.events) + 1)
	ev.CreatedAt = time.Now()
	s.events = append(s.events, ev)
	return s.versions[id], nil
}

func (s *memStore) ListModerationEvents(_ context.Context, since time.Time, limit int) ([]model.ModerationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ModerationEvent
	for _, e := range s.events {
		if e.CreatedAt.After(since) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestModerationService(store ModerationStore) *ModerationService {
	return NewModerationService(store, NewCacheServiceWithClient(nil))
}

func TestModerationService_EndToEnd(t *testing.T) {
	store := newMemStore("v1")
	svc := newTestModerationService(store)
	ctx := context.Background()

	resp, err := svc.Act(ctx, "v1", "A", moderation.Approve)
	if err != nil {
		t.Fatalf("A approve: %v", err)
	}
	if resp.Status != "pending" || !resp.Moderation.VerifiedOnce {
		t.Fatalf("after A approve: status=%s verifiedOnce=%v", resp.Status, resp.Moderation.VerifiedOnce)
	}

	resp, err = svc.Act(ctx, "v1", "B", moderation.Approve)
	if err != nil {
		t.Fatalf("B approve: %v", err)
	}
	if resp.Status != "verified" || !resp.Moderation.IsVerified {
		t.Fatalf("after B approve: status=%s", resp.Status)
	}
	if resp.Message != "Video verified successfully." {
		t.Errorf("message = %q", resp.Message)
	}

	_, err = svc.Act(ctx, "v1", "A", moderation.Refuse)
	if !errors.Is(err, moderation.ErrAlreadyFinalized) {
		t.Fatalf("A refuse after verification: err = %v, want ErrAlreadyFinalized", err)
	}

	if got := store.fields["v1"]; got.IsRefused || !got.IsVerified {
		t.Errorf("stored fields mutated by rejected action: %+v", got)
	}
	if len(store.events) != 2 {
		t.Errorf("audit events = %d, want 2", len(store.events))
	}
	if store.events[1].FromStatus != "pending" || store.events[1].ToStatus != "verified" {
		t.Errorf("second event = %+v, want pending -> verified", store.events[1])
	}
}

func TestModerationService_DuplicateVoteDoesNotWrite(t *testing.T) {
	store := newMemStore("v1")
	svc := newTestModerationService(store)
	ctx := context.Background()

	if _, err := svc.Act(ctx, "v1", "A", moderation.Refuse); err != nil {
		t.Fatalf("first refuse: %v", err)
	}
	_, err := svc.Act(ctx, "v1", "A", moderation.Refuse)
	if !errors.Is(err, moderation.ErrDuplicateVote) {
		t.Fatalf("err = %v, want ErrDuplicateVote", err)
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
	if got := RejectionMessage(moderation.Refuse, err); got != "You have already refused this video." {
		t.Errorf("RejectionMessage = %q", got)
	}
}

func TestModerationService_NotFound(t *testing.T) {
	svc := newTestModerationService(newMemStore())
	_, err := svc.Act(context.Background(), "missing", "A", moderation.Approve)
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("err = %v, want ErrVideoNotFound", err)
	}
}

func TestModerationService_PersistenceFailure(t *testing.T) {
	tests := []struct {
		name     string
		readErr  error
		writeErr error
	}{
		{"read fails", errors.New("connection reset"), nil},
		{"write fails", nil, errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore("v1")
			store.readErr = tt.readErr
			store.writeErr = tt.writeErr
			svc := newTestModerationService(store)

			_, err := svc.Act(context.Background(), "v1", "A", moderation.Approve)
			if !errors.Is(err, ErrPersistence) {
				t.Fatalf("err = %v, want ErrPersistence", err)
			}
			if f := store.fields["v1"]; f.VerifiedOnce {
				t.Error("state committed despite failed write")
			}
		})
	}
}

func TestModerationService_RetriesLostRace(t *testing.T) {
	store := newMemStore("v1")
	svc := newTestModerationService(store)

	// B's approval commits between A's read and A's write.
	store.beforeWrite = func(id string) {
		store.beforeWrite = nil
		b := "B"
		store.fields[id] = model.ModerationFields{VerifiedOnce: true, VerifiedOnceBy: &b}
		store.versions[id]++
	}

	resp, err := svc.Act(context.Background(), "v1", "A", moderation.Approve)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if resp.Status != "verified" {
		t.Errorf("status = %s, want verified after re-applying on fresh state", resp.Status)
	}
	if got := store.fields["v1"].VerifiedOnceBy; got == nil || *got != "B" {
		t.Errorf("first approver = %v, want B preserved", got)
	}
	if store.writes != 2 {
		t.Errorf("writes = %d, want 2", store.writes)
	}
}

func TestModerationService_GivesUpAfterRepeatedRaces(t *testing.T) {
	store := newMemStore("v1")
	store.beforeWrite = func(id string) { store.versions[id]++ }
	svc := newTestModerationService(store)

	_, err := svc.Act(context.Background(), "v1", "A", moderation.Approve)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if store.writes != defaultModerationAttempts {
		t.Errorf("writes = %d, want %d", store.writes, defaultModerationAttempts)
	}
}

func TestModerationService_InconsistentStoredState(t *testing.T) {
	store := newMemStore()
	store.fields["v1"] = model.ModerationFields{IsVerified: true, IsRefused: true}
	svc := newTestModerationService(store)

	_, err := svc.Act(context.Background(), "v1", "A", moderation.Approve)
	if !errors.Is(err, moderation.ErrInconsistentState) {
		t.Errorf("err = %v, want ErrInconsistentState", err)
	}
}

func TestModerationService_History(t *testing.T) {
	store := newMemStore("v1")
	svc := newTestModerationService(store)
	ctx := context.Background()

	resp, err := svc.History(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if resp.Events == nil || len(resp.Events) != 0 {
		t.Fatalf("empty history = %#v, want non-nil empty slice", resp.Events)
	}

	since := time.Now().Add(-time.Second)
	if _, err := svc.Act(ctx, "v1", "A", moderation.Refuse); err != nil {
		t.Fatalf("Act: %v", err)
	}
	resp, err = svc.History(ctx, since, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Action != "refuse" {
		t.Errorf("events = %+v, want one refuse", resp.Events)
	}
}

func TestOutcomeMessage(t *testing.T) {
	tests := []struct {
		kind   moderation.Kind
		status moderation.Status
		want   string
	}{
		{moderation.Approve, moderation.StatusVerified, "Video verified successfully."},
		{moderation.Refuse, moderation.StatusRefused, "Video refused successfully."},
		{moderation.Approve, moderation.StatusPending, "Approval recorded. A second moderator must approve before the video is published."},
		{moderation.Refuse, moderation.StatusPending, "Refusal recorded. A second moderator must refuse before the video is removed."},
	}
	for _, tt := range tests {
		if got := OutcomeMessage(tt.kind, tt.status); got != tt.want {
			t.Errorf("OutcomeMessage(%s, %s) = %q, want %q", tt.kind, tt.status, got, tt.want)
		}
	}
}
