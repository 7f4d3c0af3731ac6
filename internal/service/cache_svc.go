package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vidshare/vidshare-go/internal/metrics"
)

const (
	VideoCacheTTL    = 5 * time.Minute
	ChannelCacheTTL  = 15 * time.Minute
	FeedCacheTTL     = time.Minute
	DurationCacheTTL = 24 * time.Hour

	feedKey = "feed"
)

// CacheService provides a Redis cache-aside layer for feed, video, channel and
// external duration lookups. A nil client turns every operation into a no-op.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// NewCacheServiceWithClient wraps an existing client. rdb may be nil.
func NewCacheServiceWithClient(rdb *redis.Client) *CacheService {
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

func (c *CacheService) disabled() bool {
	return c == nil || c.rdb == nil
}

func (c *CacheService) get(ctx context.Context, key string) ([]byte, error) {
	if c.disabled() {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err == nil {
		metrics.CacheHits.Inc()
	}
	return data, err
}

func (c *CacheService) set(ctx context.Context, key string, data any, ttl time.Duration) error {
	if c.disabled() {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

func (c *CacheService) del(ctx context.Context, keys ...string) error {
	if c.disabled() {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// GetVideo retrieves a cached video response. Returns nil if not cached or cache is disabled.
func (c *CacheService) GetVideo(ctx context.Context, videoID string) ([]byte, error) {
	return c.get(ctx, videoKey(videoID))
}

// SetVideo stores a video response in cache.
func (c *CacheService) SetVideo(ctx context.Context, videoID string, data any) error {
	return c.set(ctx, videoKey(videoID), data, VideoCacheTTL)
}

// InvalidateVideo removes a video from cache (called after moderation and rating changes).
func (c *CacheService) InvalidateVideo(ctx context.Context, videoID string) error {
	return c.del(ctx, videoKey(videoID))
}

// GetChannel retrieves a cached uploader page. Returns nil if not cached.
func (c *CacheService) GetChannel(ctx context.Context, username string) ([]byte, error) {
	return c.get(ctx, channelKey(username))
}

// SetChannel stores an uploader page in cache.
func (c *CacheService) SetChannel(ctx context.Context, username string, data any) error {
	return c.set(ctx, channelKey(username), data, ChannelCacheTTL)
}

// InvalidateChannel removes an uploader page from cache.
func (c *CacheService) InvalidateChannel(ctx context.Context, username string) error {
	return c.del(ctx, channelKey(username))
}

// GetFeed retrieves a cached feed page for a theme ("" is the unfiltered feed).
// All themes share one hash so a single delete drops every feed page.
func (c *CacheService) GetFeed(ctx context.Context, theme string) ([]byte, error) {
	if c.disabled() {
		return nil, nil
	}
	data, err := c.rdb.HGet(ctx, feedKey, theme).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err == nil {
		metrics.CacheHits.Inc()
	}
	return data, err
}

// SetFeed stores a feed page. The TTL applies to the whole feed hash.
func (c *CacheService) SetFeed(ctx context.Context, theme string, data any) error {
	if c.disabled() {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, feedKey, theme, b)
	pipe.ExpireNX(ctx, feedKey, FeedCacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateFeeds drops every cached feed page.
func (c *CacheService) InvalidateFeeds(ctx context.Context) error {
	return c.del(ctx, feedKey)
}

// GetDuration returns a previously fetched external duration, or "".
func (c *CacheService) GetDuration(ctx context.Context, youtubeID string) (string, error) {
	if c.disabled() {
		return "", nil
	}
	s, err := c.rdb.Get(ctx, durationKey(youtubeID)).Result()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return "", nil
	}
	if err == nil {
		metrics.CacheHits.Inc()
	}
	return s, err
}

// SetDuration caches an external duration as plain text.
func (c *CacheService) SetDuration(ctx context.Context, youtubeID, iso string) error {
	if c.disabled() {
		return nil
	}
	return c.rdb.Set(ctx, durationKey(youtubeID), iso, DurationCacheTTL).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.disabled() {
		return nil
	}
	return c.rdb.Close()
}

func videoKey(videoID string) string {
	return fmt.Sprintf("video:%s", videoID)
}

func channelKey(username string) string {
	return fmt.Sprintf("channel:%s", username)
}

func durationKey(youtubeID string) string {
	return fmt.Sprintf("ytdur:%s", youtubeID)
}
