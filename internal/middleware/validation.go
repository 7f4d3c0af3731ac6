package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// Field length limits matching database schema constraints.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 32 // profiles.username VARCHAR(32)
	MaxThemeLen    = 32
	MinRating      = 1
	MaxRating      = 5
)

var (
	// usernameRe matches profile handles: letters, digits, dot, dash, underscore.
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	// themeRe matches theme slugs such as "street-food".
	themeRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateUUID checks that id is a uuid and returns its canonical lowercase form.
func ValidateUUID(field, id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", field + " is required"
	}
	parsed, err := uuid.Parse(id)
	if err != nil || len(id) != 36 {
		return "", field + " must be a UUID"
	}
	return parsed.String(), ""
}

// ValidateUsername checks a profile handle.
func ValidateUsername(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "username is required"
	}
	if len(name) < MinUsernameLen || len(name) > MaxUsernameLen {
		return "", "username must be 3-32 characters"
	}
	if !usernameRe.MatchString(name) {
		return "", "username contains invalid characters"
	}
	return name, ""
}

// ValidateTheme normalizes an optional theme filter. Empty means no filter.
func ValidateTheme(theme string) (string, string) {
	theme = strings.TrimSpace(strings.ToLower(theme))
	if theme == "" {
		return "", ""
	}
	if len(theme) > MaxThemeLen {
		return "", "theme must be at most 32 characters"
	}
	if !themeRe.MatchString(theme) {
		return "", "theme must be a lowercase slug"
	}
	return theme, ""
}

// ValidateRating checks a 1-5 star score.
func ValidateRating(score int) string {
	if score < MinRating || score > MaxRating {
		return "score must be between 1 and 5"
	}
	return ""
}
