package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type localKey int

const userIDKey localKey = iota

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// ParseToken validates an HS256 token and returns its subject, which must be
// a profile uuid. Tokens are issued by the external auth provider.
func ParseToken(raw string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", errInvalidToken
	}
	return id.String(), nil
}

func bearerToken(c fiber.Ctx) (string, error) {
	h := c.Get(fiber.HeaderAuthorization)
	if h == "" {
		return "", errMissingToken
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errInvalidToken
	}
	return strings.TrimSpace(token), nil
}

// Authenticate reads the Bearer token and stores the caller's user id.
// With required=false an anonymous request passes through, but a malformed or
// expired token is still rejected.
func Authenticate(secret []byte, required bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw, err := bearerToken(c)
		if errors.Is(err, errMissingToken) && !required {
			return c.Next()
		}
		if err != nil {
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "A valid bearer token is required")
		}

		userID, err := ParseToken(raw, secret)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", msg)
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" for anonymous requests.
func UserID(c fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// ModeratorChecker reports whether a user may moderate videos.
type ModeratorChecker interface {
	CanModerate(ctx context.Context, userID string) (bool, error)
}

// RequireModerator rejects callers that are not moderators or admins.
// It must run after Authenticate.
func RequireModerator(checker ModeratorChecker) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "A valid bearer token is required")
		}

		ok, err := checker.CanModerate(c.Context(), userID)
		if err != nil {
			Logger.Error().Err(err).Msg("moderator check failed")
			return ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check permissions")
		}
		if !ok {
			return ErrorResponse(c, fiber.StatusForbidden, "FORBIDDEN", "Moderator privileges are required")
		}
		return c.Next()
	}
}
