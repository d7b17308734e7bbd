package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	redisclient "github.com/yungbote/shiftsleep-backend/internal/clients/redis"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/temporalx"
)

type Clients struct {
	Redis    *goredis.Client
	Bus      redisclient.InvalidationBus
	Temporal temporalsdkclient.Client
}

// wireClients connects to Redis when it backs the cache or carries
// invalidations between processes, and to Temporal when configured.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if cfg.Redis.Addr != "" {
		rdb, err := redisclient.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		if cfg.CacheBackend == CacheBackendMemory {
			bus, err := redisclient.NewInvalidationBus(rdb, cfg.Redis.Channel, log)
			if err != nil {
				out.Close()
				return Clients{}, fmt.Errorf("init invalidation bus: %w", err)
			}
			out.Bus = bus
		}
	}

	if cfg.UsesTemporal() {
		tc, err := temporalx.NewClient(ctx, cfg.Temporal, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init temporal: %w", err)
		}
		out.Temporal = tc
	}
	return out, nil
}

func (c Clients) cacheStore(cfg Config, log *logger.Logger) cache.Store {
	if cfg.CacheBackend == CacheBackendRedis && c.Redis != nil {
		return cache.NewRedisStore(c.Redis, nil, log)
	}
	return cache.NewMemoryStore(nil)
}

func (c Clients) Close() {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
