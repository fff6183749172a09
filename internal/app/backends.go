package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/handler"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	"github.com/noah-isme/cnhs-records-api/pkg/cache"
	"github.com/noah-isme/cnhs-records-api/pkg/config"
	"github.com/noah-isme/cnhs-records-api/pkg/database"
)

// OpenBackends connects the configured record store backend and, when the
// dashboard cache is enabled, Redis. The returned func closes every
// connection that was opened.
func OpenBackends(cfg *config.Config, logger *zap.Logger) (Backends, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backends := Backends{Checks: map[string]handler.ReadinessCheck{}}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var rdb *redis.Client
	if cfg.Store.Backend == config.StoreBackendRedis || cfg.Dashboard.CacheEnabled {
		client, err := cache.Open(context.Background(), cfg.Redis)
		if err != nil {
			return backends, func() {}, err
		}
		rdb = client
		closers = append(closers, func() { _ = client.Close() })
		backends.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	switch cfg.Store.Backend {
	case config.StoreBackendMemory, "":
		logger.Warn("using in-memory record store; data is lost on restart")
		backends.KV = repository.NewMemoryKV()
	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			closeAll()
			return backends, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		backends.Checks["postgres"] = db.PingContext
		backends.KV = repository.NewPostgresKV(db)
	case config.StoreBackendRedis:
		backends.KV = repository.NewRedisKV(rdb)
	default:
		closeAll()
		return backends, func() {}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Dashboard.CacheEnabled {
		backends.Cache = repository.NewCacheRepository(rdb, cfg.Store.KeyPrefix+"cache:", logger)
	}
	return backends, closeAll, nil
}
