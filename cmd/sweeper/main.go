// Package main is the entry point for the reconciliation sweeper.
//
// The sweeper is the safety net behind best-effort bootstrap: it finds
// profiles whose dependent rows (skill scores, subscription) are missing
// and creates them. It runs as a separate process on an interval so a
// crashed sync or a partial bootstrap heals without operator action.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hacklabs/hacklabs-platform/config"
	"github.com/hacklabs/hacklabs-platform/internal/application/command"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/messaging"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/persistence/postgres"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/persistence/redis"
	"github.com/hacklabs/hacklabs-platform/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Sweeper.Enabled {
		fmt.Fprintln(os.Stderr, "sweeper is disabled (SWEEPER_ENABLED=false)")
		return nil
	}

	log := logger.Setup(logger.Options{
		Level:   cfg.Observability.LogLevel,
		Format:  cfg.Observability.LogFormat,
		Service: cfg.App.Name + "-sweeper",
		Version: cfg.App.Version,
	})
	log.Info("starting reconciliation sweeper",
		slog.Duration("interval", cfg.Sweeper.Interval),
		slog.Int("batch_size", cfg.Sweeper.BatchSize),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. POSTGRES
	// ─────────────────────────────────────────────────────────────────────────
	db, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS
	// Repairs publish ProfileRepaired; routing them through Redis lets API
	// instances drop their cached views of the repaired profiles.
	// ─────────────────────────────────────────────────────────────────────────
	var bus shared.EventBus = messaging.NewInMemoryEventBus(log)
	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		if cache, err := redis.NewCache(redisCfg); err != nil {
			log.Warn("redis unavailable, repairs will not invalidate remote caches",
				slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			redisBus, err := messaging.NewRedisEventBus(cache.Client(), log)
			if err != nil {
				log.Warn("redis event bus unavailable", slog.String("error", err.Error()))
			} else {
				defer redisBus.Close()
				bus = redisBus
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SWEEP LOOP
	// ─────────────────────────────────────────────────────────────────────────
	profileRepo := postgres.NewProfileRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	sweeper := command.NewSweepProfilesHandler(profileRepo, profileRepo, activityRepo, bus)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sweeper.Interval)
	defer ticker.Stop()

	// One pass at startup, then on the interval.
	sweepOnce(ctx, sweeper, cfg.Sweeper.BatchSize, log)
	for {
		select {
		case <-ticker.C:
			sweepOnce(ctx, sweeper, cfg.Sweeper.BatchSize, log)
		case sig := <-quit:
			log.Info("shutdown signal received", slog.String("signal", sig.String()))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sweepOnce(ctx context.Context, sweeper *command.SweepProfilesHandler, batchSize int, log *slog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := sweeper.Handle(runCtx, command.SweepProfilesCommand{BatchSize: batchSize})
	if err != nil {
		log.Error("sweep pass failed", slog.String("error", err.Error()))
		return
	}

	log.Info("sweep pass complete",
		slog.Int("scores_repaired", result.ScoresRepaired),
		slog.Int("subscriptions_repaired", result.SubscriptionsRepaired),
		slog.Int("failed", len(result.Failed)),
		slog.Duration("duration", result.Duration),
	)
	for profileID, ferr := range result.Failed {
		log.Warn("repair failed, will retry next pass",
			slog.String("profile_id", profileID),
			slog.String("error", ferr.Error()),
		)
	}
}
