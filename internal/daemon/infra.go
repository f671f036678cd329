package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/solvehelper/internal/api"
	"github.com/felixgeelhaar/solvehelper/internal/cache"
	"github.com/felixgeelhaar/solvehelper/internal/config"
	"github.com/felixgeelhaar/solvehelper/internal/judge"
	"github.com/felixgeelhaar/solvehelper/internal/quota"
	"github.com/felixgeelhaar/solvehelper/internal/storage/postgres"
)

// cachePrefix namespaces solvehelper keys in a shared Redis.
const cachePrefix = "solvehelper:"

// Resources owns the connections an App is built on
type Resources struct {
	api.Infra
	db    *postgres.DB
	redis *redis.Client
}

// Connect opens Postgres (migrated), Redis, the LLM provider and the judge
// clients described by cfg.
func Connect(ctx context.Context, cfg *config.Config) (*Resources, error) {
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	_, provider, err := api.NewLLM(cfg)
	if err != nil {
		rdb.Close()
		db.Close()
		return nil, err
	}

	r := &Resources{
		Infra: api.Infra{
			Config:  cfg,
			DB:      db,
			Cache:   cache.NewRedisCache(rdb, cachePrefix),
			Limiter: quota.NewRedisLimiter(rdb),
			LLM:     provider,
			Judge:   judge.NewClient(judge.Options{BaseURL: cfg.AggregatorURL, Pause: cfg.JudgePause}),
			Pages:   judge.NewScraper(judge.Options{BaseURL: cfg.JudgeURL, Pause: cfg.JudgePause}),
			Checks: map[string]func(context.Context) error{
				"database": db.Ping,
				"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			},
		},
		db:    db,
		redis: rdb,
	}

	version, err := db.Version(ctx)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	slog.Info("infrastructure connected", "schema_version", version, "redis", cfg.RedisAddr)
	return r, nil
}

// Close releases the connections.
func (r *Resources) Close() {
	if err := r.redis.Close(); err != nil {
		slog.Warn("close redis", "error", err)
	}
	r.db.Close()
}
