package model

import "time"

// Profile represents a user profile row.
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	BannerURL   *string   `json:"bannerUrl,omitempty"`
	IsModerator *bool     `json:"-"`
	IsAdmin     *bool     `json:"-"`
	CreatedAt   time.Time `json:"-"`
}

// CanModerate follows the profile rule used by the web client:
// is_moderator when set, otherwise is_admin, otherwise false.
func (p *Profile) CanModerate() bool {
	if p.IsModerator != nil {
		return *p.IsModerator
	}
	if p.IsAdmin != nil {
		return *p.IsAdmin
	}
	return false
}

// ProfileResponse is the API response for a public profile.
type ProfileResponse struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	BannerURL   *string `json:"bannerUrl,omitempty"`
	AccountAge  int     `json:"accountAge"`
	IsModerator bool    `json:"isModerator"`
}

// ChannelResponse is the API response for an uploader's page.
type ChannelResponse struct {
	Profile ProfileResponse `json:"profile"`
	Videos  []VideoResponse `json:"videos"`
}

// StatsResponse is the API response for global statistics.
type StatsResponse struct {
	TotalVideos    int            `json:"totalVideos"`
	PendingVideos  int            `json:"pendingVideos"`
	VerifiedVideos int            `json:"verifiedVideos"`
	RefusedVideos  int            `json:"refusedVideos"`
	TotalRatings   int            `json:"totalRatings"`
	TotalUsers     int            `json:"totalUsers"`
	Moderators     int            `json:"moderators"`
	TopThemes      map[string]int `json:"topThemes"`
}
