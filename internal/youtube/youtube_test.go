package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const watchPage = `<!DOCTYPE html>
<html><head>
<meta itemprop="name" content="Some clip">
<meta itemprop="duration" content="PT4M13S">
</head><body></body></html>`

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    string
		wantErr bool
	}{
		{"watch page", watchPage, "PT4M13S", false},
		{"long stream", `<meta itemprop="duration" content="P1DT2H">`, "P1DT2H", false},
		{"missing meta", `<html><head></head></html>`, "", true},
		{"empty content", `<meta itemprop="duration" content="">`, "", true},
		{"malformed content", `<meta itemprop="duration" content="4:13">`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration([]byte(tt.html))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDuration_MissingIsSentinel(t *testing.T) {
	_, err := ParseDuration([]byte(`<html></html>`))
	if !errors.Is(err, ErrDurationNotFound) {
		t.Errorf("err = %v, want ErrDurationNotFound", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PT90S", "1:30"},
		{"PT4M13S", "4:13"},
		{"PT1H1M1S", "1:01:01"},
		{"PT1H2M3S", "1:02:03"},
		{"P1DT2H", "26:00:00"},
		{"P1W", "168:00:00"},
		{"PT12.5S", "0:12"},
		{" PT10M ", "10:00"},
		{"P", ""},
		{"PT", ""},
		{"P1DT", ""},
		{"PT1X", ""},
		{"1:30", ""},
		{"", ""},
		{"PT99999999999999999999S", ""},
		{"PT9223372036854775807H", ""},
		{"P15250284452472W", ""},
		{"PT2562047788015215H", "2562047788015215:00:00"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClient_FetchDuration(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("v")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(watchPage))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	got, err := c.FetchDuration(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("FetchDuration: %v", err)
	}
	if got != "PT4M13S" {
		t.Errorf("duration = %q, want PT4M13S", got)
	}
	if gotPath != "/watch" || gotQuery != "dQw4w9WgXcQ" {
		t.Errorf("request = %s?v=%s, want /watch?v=dQw4w9WgXcQ", gotPath, gotQuery)
	}
}

func TestClient_FetchDuration_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchDuration(context.Background(), "abc")

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *HTTPStatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", statusErr.StatusCode)
	}
}

func TestClient_FetchDuration_EmptyID(t *testing.T) {
	c := &Client{}
	if _, err := c.FetchDuration(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestClient_WatchURLDefaults(t *testing.T) {
	c := &Client{}
	if got := c.WatchURL("a b"); got != "https://www.youtube.com/watch?v=a+b" {
		t.Errorf("WatchURL = %q", got)
	}
}
