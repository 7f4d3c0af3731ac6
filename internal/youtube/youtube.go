// Package youtube reads clip metadata from public YouTube watch pages.
package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL is used when Client.BaseURL is empty.
const DefaultBaseURL = "https://www.youtube.com"

// ErrDurationNotFound is returned when the page carries no duration metadata.
var ErrDurationNotFound = errors.New("youtube: duration metadata not found")

// HTTPStatusError is returned for non-2xx watch page responses.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("youtube: GET %s: status %d", e.URL, e.StatusCode)
}

// Client fetches watch pages. The zero value is usable.
type Client struct {
	// BaseURL lets tests and mirrors replace https://www.youtube.com.
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a Client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

// WatchURL returns the watch page URL for a clip id.
func (c *Client) WatchURL(id string) string {
	return c.baseURL() + "/watch?v=" + url.QueryEscape(id)
}

// FetchDuration returns the ISO-8601 duration advertised by the clip's watch page.
func (c *Client) FetchDuration(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("youtube: empty clip id")
	}

	page, err := c.fetch(ctx, c.WatchURL(id))
	if err != nil {
		return "", err
	}
	return ParseDuration(page)
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// ParseDuration extracts the duration from watch page HTML.
func ParseDuration(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	content, ok := doc.Find(`meta[itemprop="duration"]`).First().Attr("content")
	content = strings.TrimSpace(content)
	if !ok || content == "" {
		return "", ErrDurationNotFound
	}
	if _, valid := parseISO(content); !valid {
		return "", fmt.Errorf("youtube: malformed duration %q", content)
	}
	return content, nil
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.\d+)?S)?)?$`)

// parseISO reads a whole ISO-8601 duration in seconds, including the week and
// day designators YouTube uses for long streams. Totals past int64 fail.
func parseISO(s string) (int64, bool) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || strings.HasSuffix(s, "T") {
		return 0, false
	}

	var total int64
	for i, unit := range []int64{7 * 86400, 86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil || n > (math.MaxInt64-total)/unit {
			return 0, false
		}
		total += n * unit
	}
	return total, true
}

// FormatDuration renders an ISO-8601 duration as H:MM:SS or M:SS, folding days
// and weeks into hours. It returns "" for anything it cannot read.
func FormatDuration(iso string) string {
	total, ok := parseISO(strings.TrimSpace(iso))
	if !ok {
		return ""
	}

	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
