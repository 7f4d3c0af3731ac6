package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/vidshare/vidshare-go/internal/handler"
	"github.com/vidshare/vidshare-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Video      *handler.VideoHandler
	Moderation *handler.ModerationHandler
	Rating     *handler.RatingHandler
	Channel    *handler.ChannelHandler
	User       *handler.UserHandler
	Stats      *handler.StatsHandler
	Health     *handler.HealthHandler
}

// Options carries the router's cross-cutting dependencies.
type Options struct {
	CORSOrigins string
	JWTSecret   []byte
	Moderators  middleware.ModeratorChecker
	// Counter backs the rate limiters. Nil keeps counts in process memory.
	Counter middleware.Counter
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	app.Get("/metrics", handler.MetricsHandler())
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)

	optionalAuth := middleware.Authenticate(opts.JWTSecret, false)
	requireAuth := middleware.Authenticate(opts.JWTSecret, true)
	requireModerator := middleware.RequireModerator(opts.Moderators)

	feedLimit := middleware.NewFeedRateLimiter(opts.Counter).Handler()
	moderationLimit := middleware.NewModerationRateLimiter(opts.Counter).Handler()
	ratingLimit := middleware.NewRatingRateLimiter(opts.Counter).Handler()
	historyLimit := middleware.NewHistoryRateLimiter(opts.Counter).Handler()
	statsLimit := middleware.NewStatsRateLimiter(opts.Counter).Handler()

	api := app.Group("/api")

	// Video routes
	api.Get("/videos", feedLimit, h.Video.Feed)
	api.Get("/videos/:id", feedLimit, optionalAuth, h.Video.Detail)
	api.Post("/videos/:id/ratings", requireAuth, ratingLimit, h.Rating.Rate)
	api.Post("/videos/:id/moderation", requireAuth, requireModerator, moderationLimit, h.Moderation.Act)

	// Moderator routes
	mod := api.Group("/moderation", requireAuth, requireModerator)
	mod.Get("/queue", moderationLimit, h.Moderation.Queue)
	mod.Get("/history", historyLimit, h.Moderation.History)

	// Channel routes
	api.Get("/channels/:username", feedLimit, h.Channel.GetByUsername)

	// User routes
	api.Get("/users/:userId", feedLimit, h.User.GetByUserID)

	// Stats routes
	api.Get("/stats", statsLimit, h.Stats.GetStats)
}
