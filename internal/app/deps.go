package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidfriends/linkresolver/internal/auth"
	"github.com/vidfriends/linkresolver/internal/config"
	"github.com/vidfriends/linkresolver/internal/db"
	"github.com/vidfriends/linkresolver/internal/handlers"
	"github.com/vidfriends/linkresolver/internal/middleware"
	"github.com/vidfriends/linkresolver/internal/repositories"
	"github.com/vidfriends/linkresolver/internal/resolver"
	"github.com/vidfriends/linkresolver/internal/storage"
	"github.com/vidfriends/linkresolver/internal/videos"
)

const (
	rateLimitVisitorTTL = 10 * time.Minute
	memoryHistorySize   = 500
)

type cleanupFunc func(ctx context.Context) error

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. pool may be nil, in which case settings and history live in memory.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, cleanupFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []cleanupFunc
	cleanup := func(ctx context.Context) error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	opts := []resolver.Option{
		resolver.WithNormalizer(resolver.NewNormalizer(resolver.WithFuzzyExtensions(cfg.FuzzyExtensions...))),
	}

	if cfg.Archive.Enabled {
		store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure response archive: %w", err)
		}
		archiver := videos.NewResponseArchiver(store, videos.ArchiverConfig{
			QueueSize: cfg.Archive.QueueSize,
			Workers:   cfg.Archive.Workers,
			Prefix:    cfg.ObjectStore.Prefix,
		}, logger)
		opts = append(opts, resolver.WithUnresolvedHook(archiver.Hook()))
		closers = append(closers, archiver.Shutdown)
	}

	var media handlers.MediaResolver = resolver.New(resolver.NewHTTPTransport(cfg.HTTPTimeout), opts...)

	if cfg.CacheTTL > 0 {
		var remote videos.RemoteCache
		if cfg.RedisURL != "" {
			redisCache, err := videos.NewRedisCache(ctx, cfg.RedisURL)
			if err != nil {
				logger.Warn("cache: redis unavailable, remote tier disabled", "error", err)
			} else {
				remote = redisCache
				closers = append(closers, func(context.Context) error { return redisCache.Close() })
			}
		}
		media = videos.NewCachingResolver(media, cfg.CacheTTL, remote)
		logger.Info("cache: enabled", "ttl", cfg.CacheTTL, "remote", remote != nil)
	}

	deps := handlers.Dependencies{
		Resolver: media,
		Defaults: cfg.Provider,
	}

	if pool != nil {
		deps.Settings = repositories.NewPostgresSettingsRepository(pool)
		deps.History = repositories.NewPostgresHistoryRepository(pool)
		deps.Health = map[string]handlers.HealthCheck{"database": pool.Ping}
	} else {
		deps.Settings = repositories.NewInMemorySettingsRepository()
		deps.History = repositories.NewInMemoryHistoryRepository(memoryHistorySize)
	}

	verifier, err := auth.NewTokenVerifier(cfg.AdminTokenHash)
	if err != nil {
		_ = cleanup(ctx)
		return handlers.Dependencies{}, nil, err
	}
	if verifier != nil {
		deps.Admin = verifier
	}

	if cfg.RateLimit.Requests > 0 {
		deps.Limiter = middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, rateLimitVisitorTTL)
	}

	return deps, cleanup, nil
}
