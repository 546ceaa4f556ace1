package lock

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tourdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewFromConfig),
	fx.Provide(NewOptions),
)

func NewOptions(cfg config.Config) Options {
	opts := DefaultOptions()
	opts.TTL = cfg.Booking.LockTTL
	opts.Wait = cfg.Booking.LockWait
	return opts.withDefaults()
}

func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	log = log.Named("lock")
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Info("redis not configured, using in-process locks")
		return NewLocalLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis locks", zap.String("addr", addr))
	return NewRedisLocker(client)
}
