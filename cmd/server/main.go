package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"hookbot/internal/api"
	"hookbot/internal/api/handlers"
	"hookbot/internal/api/middleware"
	"hookbot/internal/engine/capture"
	"hookbot/internal/engine/delivery"
	"hookbot/internal/engine/notify"
	"hookbot/internal/engine/pipeline"
	"hookbot/internal/engine/requestlog"
	"hookbot/internal/engine/stats"
	"hookbot/internal/engine/templates"
	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/auth"
	"hookbot/internal/platform/config"
	"hookbot/internal/platform/database"
	"hookbot/internal/platform/repositories"
	"hookbot/migrations"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("HOOKBOT_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	settings := config.NewSettingsStore(cfg.Settings())
	loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			log.Error().Err(err).Msg("config reload failed, keeping current settings")
			return
		}
		settings.Publish(next.Settings())
		log.Info().Msg("settings reloaded from config file")
	})

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Repositories
	webhookRepo := repositories.NewWebhookRepository(db)
	botRepo := repositories.NewBotRepository(db)
	logRepo := repositories.NewRequestLogRepository(db)
	statRepo := repositories.NewDailyStatRepository(db)

	// Engine
	cache := templates.NewCache(webhookRepo)
	compiled, err := cache.Initialize(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load templates")
	}
	log.Info().Int("templates", compiled).Msg("template cache ready")

	formatter := templates.NewFormatter(cache)
	client := delivery.NewClient(cfg.Telegram)
	aggregator := stats.NewAggregator(statRepo)
	requestLogger := requestlog.NewLogger(db, logRepo, aggregator, settings)

	notifier := notify.NewNotifier(cfg.Notifier, client, botRepo, settings)
	notifier.Start()

	sessions := capture.NewManager(cfg.Capture.TTL)
	go sessions.Run(ctx, cfg.Capture.SweepInterval)

	processor := pipeline.NewProcessor(webhookRepo, botRepo, formatter, client, requestLogger, notifier)

	// Transport
	tokenSvc := auth.NewTokenService(cfg.JWT)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.WebhookPerMinute)
	go rateLimiter.RunCleanup(ctx.Done())

	router := api.NewRouter(&api.Dependencies{
		WebhookHandler:  handlers.NewWebhookHandler(processor, cfg.Server.MaxBodyBytes),
		CaptureHandler:  handlers.NewCaptureHandler(sessions, cfg.Server.PublicURL, cfg.Server.MaxBodyBytes),
		TemplateHandler: handlers.NewTemplateHandler(webhookRepo, cache, formatter, cfg.Server.MaxBodyBytes),
		StatsHandler:    handlers.NewStatsHandler(aggregator, settings),
		SettingsHandler: handlers.NewSettingsHandler(settings),
		HealthHandler:   handlers.NewHealthHandler(db, requestLogger.Pending, sessions.Len),
		MetricsHandler:  handlers.NewMetricsHandler(),
		AuthMiddleware:  middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:     rateLimiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	notifier.Stop()

	if n := requestLogger.Pending(); n > 0 {
		log.Warn().Int("pending", n).Msg("request records still pending at exit")
	}
}
