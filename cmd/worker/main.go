package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"hookbot/internal/engine/stats"
	"hookbot/internal/pkg/logger"
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
		if err == nil {
			settings.Publish(next.Settings())
		}
	})

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	r := &retention{
		logs:     repositories.NewRequestLogRepository(db),
		stats:    stats.NewAggregator(repositories.NewDailyStatRepository(db)),
		settings: settings,
	}

	log.Info().Msg("starting hookbot background workers")
	runRetentionWorker(ctx, r)
}

type retention struct {
	logs     *repositories.RequestLogRepository
	stats    *stats.Aggregator
	settings *config.SettingsStore
}

// purge drops request logs and daily rows older than the stats window.
func (r *retention) purge(ctx context.Context) {
	days := r.settings.Current().StatsWindowDays
	if days <= 0 {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Unix()
	logs, err := r.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("purging request logs failed")
	}
	rows, err := r.stats.Purge(ctx, days)
	if err != nil {
		log.Error().Err(err).Msg("purging daily stats failed")
	}
	log.Info().Int64("request_logs", logs).Int64("daily_stats", rows).Int("window_days", days).Msg("retention purge finished")
}

func runRetentionWorker(ctx context.Context, r *retention) {
	// Run at 01:00 UTC daily
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 1, 0, 0, 0, time.UTC)
		duration := next.Sub(now)
		if duration < 0 {
			duration = time.Minute
		}

		log.Info().Dur("sleep", duration).Msg("retention worker sleeping")
		select {
		case <-ctx.Done():
			log.Info().Msg("retention worker stopped")
			return
		case <-time.After(duration):
		}

		r.purge(ctx)
	}
}
