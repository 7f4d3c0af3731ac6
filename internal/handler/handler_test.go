package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vidshare/vidshare-go/internal/middleware"
	"github.com/vidshare/vidshare-go/internal/model"
	"github.com/vidshare/vidshare-go/internal/moderation"
	"github.com/vidshare/vidshare-go/internal/service"
)

var testSecret = []byte("handler-test-secret")

const (
	testVideoID = "0b5c9a52-3f0e-4d8e-9c41-5a7d2b6e8f10"
	testUserID  = "3f1c2d4e-8b7a-4c5d-9e0f-112233445566"
)

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path, body, authz string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authz != "" {
		req.Header.Set(fiber.HeaderAuthorization, authz)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return e.Error.Code
}

type fakeModerator struct {
	err      error
	gotVideo string
	gotUser  string
	gotKind  moderation.Kind
	since    time.Time
	limit    int
}

func (f *fakeModerator) Act(_ context.Context, videoID, moderatorID string, kind moderation.Kind) (*model.ModerationResponse, error) {
	f.gotVideo, f.gotUser, f.gotKind = videoID, moderatorID, kind
	if f.err != nil {
		return nil, f.err
	}
	return &model.ModerationResponse{
		Success: true,
		Message: service.OutcomeMessage(kind, moderation.StatusPending),
		VideoID: videoID,
		Status:  moderation.StatusPending.String(),
	}, nil
}

func (f *fakeModerator) History(_ context.Context, since time.Time, limit int) (*model.ModerationHistoryResponse, error) {
	f.since, f.limit = since, limit
	if f.err != nil {
		return nil, f.err
	}
	return &model.ModerationHistoryResponse{Events: []model.ModerationEvent{}, SyncedAt: time.Now()}, nil
}

type fakeQueue struct{ videos []model.VideoResponse }

func (f fakeQueue) Queue(context.Context) ([]model.VideoResponse, error) { return f.videos, nil }

func newModerationApp(m *fakeModerator) *fiber.App {
	h := NewModerationHandler(m, fakeQueue{videos: []model.VideoResponse{{ID: testVideoID}}})
	app := fiber.New()
	auth := middleware.Authenticate(testSecret, true)
	app.Post("/api/videos/:id/moderation", auth, h.Act)
	app.Get("/api/moderation/queue", auth, h.Queue)
	app.Get("/api/moderation/history", auth, h.History)
	return app
}

func TestModerationHandler_Act(t *testing.T) {
	path := "/api/videos/" + testVideoID + "/moderation"

	tests := []struct {
		name       string
		path       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"approve", path, `{"action":"approve"}`, nil, fiber.StatusOK, ""},
		{"refuse", path, `{"action":"refuse"}`, nil, fiber.StatusOK, ""},
		{"unknown action", path, `{"action":"delete"}`, nil, fiber.StatusBadRequest, "INVALID_ACTION"},
		{"bad json", path, `{`, nil, fiber.StatusBadRequest, "INVALID_BODY"},
		{"bad id", "/api/videos/nope/moderation", `{"action":"approve"}`, nil, fiber.StatusBadRequest, "INVALID_FIELD"},
		{"not found", path, `{"action":"approve"}`, service.ErrVideoNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		{"duplicate", path, `{"action":"approve"}`, moderation.ErrDuplicateVote, fiber.StatusConflict, "DUPLICATE_VOTE"},
		{"finalized", path, `{"action":"refuse"}`, moderation.ErrAlreadyFinalized, fiber.StatusConflict, "ALREADY_FINALIZED"},
		{"persistence", path, `{"action":"approve"}`, fmt.Errorf("%w: boom", service.ErrPersistence), fiber.StatusServiceUnavailable, "PERSISTENCE_FAILURE"},
		{"inconsistent", path, `{"action":"approve"}`, moderation.ErrInconsistentState, fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModerator{err: tt.svcErr}
			status, body := do(t, newModerationApp(m), fiber.MethodPost, tt.path, tt.body, bearer(t, testUserID))
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", status, tt.wantStatus, body)
			}
			if tt.wantCode != "" {
				if got := errorCode(t, body); got != tt.wantCode {
					t.Errorf("code = %q, want %q", got, tt.wantCode)
				}
				return
			}
			if m.gotVideo != testVideoID || m.gotUser != testUserID {
				t.Errorf("service got video=%q user=%q", m.gotVideo, m.gotUser)
			}
		})
	}
}

func TestModerationHandler_ActDuplicateMessage(t *testing.T) {
	m := &fakeModerator{err: moderation.ErrDuplicateVote}
	_, body := do(t, newModerationApp(m), fiber.MethodPost, "/api/videos/"+testVideoID+"/moderation", `{"action":"refuse"}`, bearer(t, testUserID))

	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatal(err)
	}
	if e.Error.Message != "You have already refused this video." {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestModerationHandler_RequiresAuth(t *testing.T) {
	status, _ := do(t, newModerationApp(&fakeModerator{}), fiber.MethodPost, "/api/videos/"+testVideoID+"/moderation", `{"action":"approve"}`, "")
	if status != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
}

func TestModerationHandler_History(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"defaults", "", fiber.StatusOK, 100},
		{"since and limit", "?since=2024-05-01T00:00:00Z&limit=10", fiber.StatusOK, 10},
		{"bad since", "?since=yesterday", fiber.StatusBadRequest, 0},
		{"limit too large", "?limit=501", fiber.StatusBadRequest, 0},
		{"limit zero", "?limit=0", fiber.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModerator{}
			status, _ := do(t, newModerationApp(m), fiber.MethodGet, "/api/moderation/history"+tt.query, "", bearer(t, testUserID))
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if tt.wantStatus == fiber.StatusOK && m.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", m.limit, tt.wantLimit)
			}
		})
	}
}

func TestModerationHandler_Queue(t *testing.T) {
	status, body := do(t, newModerationApp(&fakeModerator{}), fiber.MethodGet, "/api/moderation/queue", "", bearer(t, testUserID))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var resp struct {
		Videos []model.VideoResponse `json:"videos"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Videos) != 1 || resp.Videos[0].ID != testVideoID {
		t.Errorf("videos = %+v", resp.Videos)
	}
}

type fakeRater struct {
	err      error
	gotScore int
	gotUser  string
}

func (f *fakeRater) Rate(_ context.Context, videoID, userID string, score int, _ string) (*model.RatingResponse, error) {
	f.gotScore, f.gotUser = score, userID
	if f.err != nil {
		return nil, f.err
	}
	q := float64(score)
	return &model.RatingResponse{Success: true, Score: score, QualityScore: &q}, nil
}

func TestRatingHandler_Rate(t *testing.T) {
	path := "/api/videos/" + testVideoID + "/ratings"
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{"valid", `{"score":4}`, nil, fiber.StatusOK},
		{"score too high", `{"score":6}`, nil, fiber.StatusBadRequest},
		{"score zero", `{"score":0}`, nil, fiber.StatusBadRequest},
		{"bad json", `score=4`, nil, fiber.StatusBadRequest},
		{"unverified video", `{"score":3}`, service.ErrVideoNotFound, fiber.StatusNotFound},
		{"store error", `{"score":3}`, errors.New("db down"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRater{err: tt.svcErr}
			app := fiber.New()
			app.Post("/api/videos/:id/ratings", middleware.Authenticate(testSecret, true), NewRatingHandler(r).Rate)

			status, _ := do(t, app, fiber.MethodPost, path, tt.body, bearer(t, testUserID))
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if status == fiber.StatusOK && (r.gotScore != 4 || r.gotUser != testUserID) {
				t.Errorf("service got score=%d user=%q", r.gotScore, r.gotUser)
			}
		})
	}
}

type fakeVideos struct {
	theme  string
	viewer string
	err    error
}

func (f *fakeVideos) Feed(_ context.Context, theme string) ([]model.VideoResponse, error) {
	f.theme = theme
	return []model.VideoResponse{{ID: testVideoID, DurationDisplay: "3:25"}}, f.err
}

func (f *fakeVideos) Detail(_ context.Context, id, viewerID string) (*model.VideoResponse, error) {
	f.viewer = viewerID
	if f.err != nil {
		return nil, f.err
	}
	return &model.VideoResponse{ID: id}, nil
}

func newVideoApp(v *fakeVideos) *fiber.App {
	h := NewVideoHandler(v)
	app := fiber.New()
	auth := middleware.Authenticate(testSecret, false)
	app.Get("/api/videos", h.Feed)
	app.Get("/api/videos/:id", auth, h.Detail)
	return app
}

func TestVideoHandler_Feed(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTheme  string
	}{
		{"no filter", "", fiber.StatusOK, ""},
		{"theme normalized", "?theme=Travel", fiber.StatusOK, "travel"},
		{"bad theme", "?theme=a%20b", fiber.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVideos{}
			status, _ := do(t, newVideoApp(v), fiber.MethodGet, "/api/videos"+tt.query, "", "")
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if v.theme != tt.wantTheme {
				t.Errorf("theme = %q, want %q", v.theme, tt.wantTheme)
			}
		})
	}
}

func TestVideoHandler_Detail(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		v := &fakeVideos{}
		status, _ := do(t, newVideoApp(v), fiber.MethodGet, "/api/videos/"+testVideoID, "", "")
		if status != fiber.StatusOK || v.viewer != "" {
			t.Errorf("status = %d viewer = %q", status, v.viewer)
		}
	})
	t.Run("authenticated viewer", func(t *testing.T) {
		v := &fakeVideos{}
		status, _ := do(t, newVideoApp(v), fiber.MethodGet, "/api/videos/"+testVideoID, "", bearer(t, testUserID))
		if status != fiber.StatusOK || v.viewer != testUserID {
			t.Errorf("status = %d viewer = %q", status, v.viewer)
		}
	})
	t.Run("hidden", func(t *testing.T) {
		v := &fakeVideos{err: service.ErrVideoNotFound}
		status, _ := do(t, newVideoApp(v), fiber.MethodGet, "/api/videos/"+testVideoID, "", "")
		if status != fiber.StatusNotFound {
			t.Errorf("status = %d, want 404", status)
		}
	})
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantState  string
	}{
		{"db up cache disabled", stubPinger{}, fiber.StatusOK, "healthy"},
		{"db down", stubPinger{err: errors.New("refused")}, fiber.StatusServiceUnavailable, "unhealthy"},
		{"no db", nil, fiber.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, nil)
			app := fiber.New()
			app.Get("/health/ready", h.Ready)

			status, body := do(t, app, fiber.MethodGet, "/health/ready", "", "")
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			var resp struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantState)
			}
		})
	}
}
