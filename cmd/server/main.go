// Package main is the entry point for the HackLabs platform API server.
//
// The server owns identity reconciliation (Clerk to Supabase), profile
// reads, enrollment, and module progress. Background repair runs in the
// separate sweeper binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hacklabs/hacklabs-platform/config"
	"github.com/hacklabs/hacklabs-platform/internal/application/command"
	"github.com/hacklabs/hacklabs-platform/internal/application/eventhandler"
	"github.com/hacklabs/hacklabs-platform/internal/application/query"
	"github.com/hacklabs/hacklabs-platform/internal/domain/identity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/external/clerk"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/messaging"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/persistence/postgres"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/persistence/redis"
	httpserver "github.com/hacklabs/hacklabs-platform/internal/interface/http"
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
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.Setup(logger.Options{
		Level:   cfg.Observability.LogLevel,
		Format:  cfg.Observability.LogFormat,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	})
	log.Info("starting API server",
		slog.String("env", string(cfg.App.Environment)),
		slog.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRES (Supabase)
	// ─────────────────────────────────────────────────────────────────────────
	db, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	log.Info("connected to postgres")

	if cfg.Database.MigrateOnStart {
		if err := postgres.NewMigrator(db).Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (cache, rate limiting, event fan-out). Optional.
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err = redis.NewCache(redisCfg)
		if err != nil {
			// The cache accelerates, it does not gate. Run without it.
			log.Warn("redis unavailable, running without cache", slog.String("error", err.Error()))
			cache = nil
		} else {
			defer cache.Close()
			log.Info("connected to redis")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// Local handlers get synchronous delivery; when Redis is up, events
	// also fan out to other instances for cache invalidation.
	// ─────────────────────────────────────────────────────────────────────────
	var bus shared.EventBus = messaging.NewInMemoryEventBus(log)
	if cache != nil {
		redisBus, err := messaging.NewRedisEventBus(cache.Client(), log)
		if err != nil {
			log.Warn("redis event bus unavailable, using in-memory only", slog.String("error", err.Error()))
		} else {
			defer redisBus.Close()
			bus = redisBus
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. CLERK
	// ─────────────────────────────────────────────────────────────────────────
	clerkClient := clerk.NewClient(clerk.ClientConfig{
		BaseURL:   cfg.Clerk.BaseURL,
		SecretKey: cfg.Clerk.SecretKey,
		Timeout:   cfg.Clerk.RequestTimeout,
		Logger:    log,
	})

	var verifier *clerk.Verifier
	publicKeyPEM, err := cfg.Clerk.SessionPublicKeyPEM()
	if err != nil {
		return err
	}
	if publicKeyPEM != "" {
		verifier, err = clerk.NewVerifier(publicKeyPEM, cfg.Clerk.AuthorizedParties)
		if err != nil {
			return fmt.Errorf("clerk verifier: %w", err)
		}
	} else {
		log.Warn("no Clerk public key configured, API routes will reject all sessions")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES AND APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	profileRepo := postgres.NewProfileRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	enrollmentRepo := postgres.NewEnrollmentRepository(db)
	progressRepo := postgres.NewModuleProgressRepository(db)
	activityRepo := postgres.NewActivityRepository(db)

	var profileCache query.ProfileCache
	if cache != nil {
		profileCache = redis.NewProfileCache(cache, log)
	}

	syncHandler := command.NewSyncIdentityHandler(
		profileRepo, profileRepo, activityRepo, bus,
		command.SyncIdentityHandlerConfig{
			LookupKey: identity.ParseLookupKey(cfg.Profile.LookupKey),
		},
	)
	enrollHandler := command.NewEnrollHandler(catalogRepo, enrollmentRepo, activityRepo, bus)
	progressHandler := command.NewSetModuleCompletionHandler(catalogRepo, enrollmentRepo, progressRepo, bus)

	getProfileHandler := query.NewGetProfileHandler(profileRepo, profileRepo, profileCache)
	getProgressHandler := query.NewGetUnitProgressHandler(catalogRepo, enrollmentRepo, progressRepo)

	// Cache invalidation rides the event bus.
	if profileCache != nil {
		invalidator := eventhandler.NewOnProfileChangedHandler(profileCache, log)
		if err := invalidator.Register(bus); err != nil {
			return fmt.Errorf("register cache invalidation: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		WebhookSecret:      cfg.Clerk.WebhookSecret,
	}, httpserver.Dependencies{
		SyncIdentity:        syncHandler,
		Enroll:              enrollHandler,
		SetModuleCompletion: progressHandler,
		GetProfile:          getProfileHandler,
		GetUnitProgress:     getProgressHandler,
		ClerkClient:         clerkClient,
		ClerkVerifier:       verifier,
		DB:                  db,
		Cache:               cache,
		Logger:              log,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
