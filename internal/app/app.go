// Package app wires configuration into a ready service. The server and the
// command-line tool share it so both see the same data.
package app

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"novapos/internal/advice"
	"novapos/internal/cache"
	"novapos/internal/config"
	"novapos/internal/kv"
	"novapos/internal/service"
	"novapos/internal/store"
	"novapos/internal/store/memory"
	pgstore "novapos/internal/store/postgres"
)

type Runtime struct {
	Repo    store.Repository
	Service *service.Service
	closers []func() error
	logger  *zap.Logger
}

// Open selects the repository: PostgreSQL when DATABASE_URL is set, otherwise
// the products and sales records kept in Redis (REDIS_ADDR) or in DATA_DIR.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{logger: logger}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = kv.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, redisClient.Close)
	}

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		rt.closers = append(rt.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		rt.Repo = pg
		logger.Info("repository selected", zap.String("backend", "postgres"))
	case redisClient != nil:
		repo, err := memory.Open(ctx, kv.NewRedisStore(redisClient), logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Repo = repo
		logger.Info("repository selected", zap.String("backend", "redis"))
	default:
		files, err := kv.NewFileStore(cfg.DataDir)
		if err != nil {
			rt.Close()
			return nil, err
		}
		repo, err := memory.Open(ctx, files, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Repo = repo
		logger.Info("repository selected", zap.String("backend", "file"), zap.String("dir", cfg.DataDir))
	}

	adviceCache := cache.AdviceCache(cache.NoopAdviceCache{})
	if redisClient != nil {
		adviceCache = cache.NewRedisAdviceCache(redisClient)
	}

	var client advice.Client = advice.StaticClient{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := advice.NewGeminiClient(ctx, advice.GeminiOptions{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Endpoint: cfg.GeminiEndpoint,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
		client = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, advice endpoint returns placeholder text")
	}

	advisor := advice.NewEngine(client, adviceCache, advice.Options{
		CacheTTL: cfg.AdviceCacheTTL(),
		Timeout:  cfg.AdviceTimeout(),
		Language: cfg.AdviceLanguage,
		Logger:   logger,
	})

	rt.Service = service.New(rt.Repo, advisor, service.Options{
		Location:          loc,
		LowStockThreshold: cfg.LowStockThreshold,
		Logger:            logger,
	})
	return rt, nil
}

// Close releases backends in reverse order of opening.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("close error", zap.Error(err))
		}
	}
	rt.closers = nil
}
