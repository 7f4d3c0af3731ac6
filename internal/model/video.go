package model

import (
	"encoding/json"
	"time"
)

// SourceType is where the video bytes live.
type SourceType string

const (
	// SourceExternal is a clip linked from YouTube; playback goes through the embed.
	SourceExternal SourceType = "youtube"
	// SourceNative is a file uploaded to our own storage.
	SourceNative SourceType = "native"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	return t == SourceExternal || t == SourceNative
}

// ModerationFields mirrors the moderation columns of the videos table.
type ModerationFields struct {
	IsVerified     bool    `json:"isVerified"`
	IsRefused      bool    `json:"isRefused"`
	VerifiedOnce   bool    `json:"verifiedOnce"`
	RefusedOnce    bool    `json:"refusedOnce"`
	VerifiedOnceBy *string `json:"verifiedOnceUserId,omitempty"`
	RefusedOnceBy  *string `json:"refusedOnceUserId,omitempty"`
}

// Video represents a submitted video row.
type Video struct {
	ID           string          `json:"id"`
	UserID       *string         `json:"userId,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         SourceType      `json:"type"`
	URL          *string         `json:"url,omitempty"`
	YoutubeID    *string         `json:"youtubeId,omitempty"`
	Themes       []string        `json:"themes"`
	RawDuration  json.RawMessage `json:"-"`
	Thumbnail    *string         `json:"thumbnail,omitempty"`
	QualityScore *float64        `json:"qualityScore,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`

	Moderation        ModerationFields `json:"moderation"`
	ModerationVersion int64            `json:"-"`
}

// VideoResponse is the API response for feed entries and video lookups.
type VideoResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Type            SourceType `json:"type"`
	URL             *string    `json:"url,omitempty"`
	YoutubeID       *string    `json:"youtubeId,omitempty"`
	Themes          []string   `json:"themes"`
	Thumbnail       *string    `json:"thumbnail,omitempty"`
	QualityScore    *float64   `json:"qualityScore,omitempty"`
	DurationDisplay string     `json:"durationDisplay"`
	AuthorID        *string    `json:"authorId,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UserRating      *int       `json:"userRating,omitempty"`
}

// ModerationRequest is the API request body for a moderator action.
type ModerationRequest struct {
	Action string `json:"action"`
}

// ModerationResponse is the API response after a moderator action.
type ModerationResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	VideoID    string           `json:"videoId"`
	Status     string           `json:"status"`
	Moderation ModerationFields `json:"moderation"`
}

// ModerationEvent is one audit row written alongside a moderation update.
type ModerationEvent struct {
	ID          int64     `json:"id"`
	VideoID     string    `json:"videoId"`
	ModeratorID string    `json:"moderatorId"`
	Action      string    `json:"action"`
	FromStatus  string    `json:"fromStatus"`
	ToStatus    string    `json:"toStatus"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ModerationHistoryResponse is the API response for the moderation audit log.
type ModerationHistoryResponse struct {
	Events   []ModerationEvent `json:"events"`
	SyncedAt time.Time         `json:"syncedAt"`
}

// RatingRequest is the API request body for rating a video.
type RatingRequest struct {
	Score int `json:"score"`
}

// RatingResponse is the API response after a rating.
type RatingResponse struct {
	Success      bool     `json:"success"`
	Score        int      `json:"score"`
	QualityScore *float64 `json:"qualityScore,omitempty"`
}
