package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vidshare/vidshare-go/internal/config"
	"github.com/vidshare/vidshare-go/internal/db"
	"github.com/vidshare/vidshare-go/internal/duration"
	"github.com/vidshare/vidshare-go/internal/handler"
	"github.com/vidshare/vidshare-go/internal/metrics"
	"github.com/vidshare/vidshare-go/internal/middleware"
	"github.com/vidshare/vidshare-go/internal/repository"
	"github.com/vidshare/vidshare-go/internal/router"
	"github.com/vidshare/vidshare-go/internal/service"
	"github.com/vidshare/vidshare-go/internal/youtube"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "vidshare-api")
	logger := middleware.Logger

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			logger.Fatal().Msg("JWT_SECRET is required in production")
		}
		logger.Warn().Msg("JWT_SECRET is empty; every bearer token will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}
	metrics.Register(pool)

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	// Repositories
	videoRepo := repository.NewVideoRepo(pool)
	userRepo := repository.NewUserRepo(pool)
	ratingRepo := repository.NewRatingRepo(pool)

	// Durations: YouTube watch pages feed the normalizer
	yt := youtube.NewClient(cfg.YoutubeBaseURL)
	formatter := duration.NewFormatter(youtube.FormatDuration)
	formatter.Unavailable = cfg.DurationUnavailable

	// Services
	durationSvc := service.NewDurationService(yt, cache, formatter)
	ratingSvc := service.NewRatingService(ratingRepo, cache, cfg.IPHashSalt)
	videoSvc := service.NewVideoService(videoRepo, userRepo, ratingSvc, durationSvc, cache)
	channelSvc := service.NewChannelService(userRepo, videoRepo, videoSvc, cache)
	userSvc := service.NewUserService(userRepo)
	moderationSvc := service.NewModerationService(videoRepo, cache)
	scoreSvc := service.NewScoreService(ratingRepo)

	// Background workers
	qualityWorker := service.NewQualityWorker(pool, scoreSvc, cache, cfg.RatingBatchWindow)
	durationWorker := service.NewDurationWorker(videoRepo, durationSvc, cfg.DurationBackfillInterval)

	var counter middleware.Counter
	if rdb := cache.Client(); rdb != nil {
		counter = middleware.NewRedisCounter(rdb)
	}

	app := fiber.New(fiber.Config{
		AppName:      "VidShare API",
		ServerHeader: "VidShare",
	})

	router.Setup(app, &router.Handlers{
		Video:      handler.NewVideoHandler(videoSvc),
		Moderation: handler.NewModerationHandler(moderationSvc, videoSvc),
		Rating:     handler.NewRatingHandler(ratingSvc),
		Channel:    handler.NewChannelHandler(channelSvc),
		User:       handler.NewUserHandler(userSvc),
		Stats:      handler.NewStatsHandler(userSvc),
		Health:     handler.NewHealthHandler(pool, cache.Client()),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		JWTSecret:   []byte(cfg.JWTSecret),
		Moderators:  userSvc,
		Counter:     counter,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("VidShare backend starting")
		return app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()})
	})
	g.Go(func() error {
		return qualityWorker.Start(gctx)
	})
	g.Go(func() error {
		return durationWorker.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
