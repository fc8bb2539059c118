package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"studio/internal/adapter/repo"
	"studio/internal/domain"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/geoip"
	"studio/internal/middleware"
	"studio/internal/storage"
	"studio/internal/studio"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api stopped")
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) error {
	generator, err := infra.NewGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	enhancer, err := infra.NewEnhancer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		return err
	}

	var usage domain.UsageRepository
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	if dbpool != nil {
		defer dbpool.Close()
		usageRepo := repo.NewUsageRepository(dbpool)
		if err := usageRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		usage = usageRepo
	} else {
		logger.Info().Msg("DATABASE_URL not set, usage counters disabled")
	}

	var limiter middleware.Limiter
	if cfg.RateLimitPerMin > 0 {
		limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
		rdb, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute)
		}
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	sessions := studio.NewManager(studio.Options{
		Generator:          generator,
		Store:              store,
		Usage:              usage,
		HeadshotCandidates: cfg.HeadshotCandidates,
		IdleTTL:            cfg.SessionIdleTTL,
		Logger:             logger,
	})
	go sessions.Run(ctx)
	defer sessions.Shutdown(context.Background())

	app := handlers.NewApp(sessions, logger)
	app.Usage = usage
	app.Enhancer = enhancer
	app.MaxUploadBytes = cfg.MaxUploadBytes
	app.GenerationTimeout = cfg.GenerationTimeout
	app.Provider = cfg.ImageProvider
	app.AllowedOrigins = cfg.CORSAllowedOrigins

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  lookup,
		Limiter:        limiter,
	})

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().Str("addr", server.Addr()).Str("provider", fmt.Sprint(generator)).Msg("API listening")
	return server.Run(ctx, cfg.HTTPIdleTimeout)
}
