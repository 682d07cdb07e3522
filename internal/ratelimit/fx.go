package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/trackmint/trackmint/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when no Redis address is configured; the
// limiter and locker degrade to no-ops in that case.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Warn("redis not configured, rate limiting and scheduler locks disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func NewTrackLimiter(client *redis.Client, cfg config.Config) *Limiter {
	return NewLimiter(client, "ratelimit:track", cfg.TrackIngestRate, cfg.TrackIngestBurst)
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTrackLimiter),
	fx.Provide(NewLocker),
)
