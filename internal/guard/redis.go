package guard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-bridge/internal/config"
)

const lockKeyPrefix = "bridge:creation-lock:"

type redisKeyLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisKeyLock connects to Redis and returns the distributed lock
// backend. The TTL bounds how long a crashed holder can block other
// processes. On Redis errors the lock fails open: the remote platform's own
// external-key uniqueness remains the authoritative guard, the lock is an
// optimization.
func NewRedisKeyLock(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) KeyLock {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &redisKeyLock{client: client, ttl: ttl, logger: logger}
}

func (l *redisKeyLock) TryAcquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, 1, l.ttl).Result()
	if err != nil {
		l.logger.Warn("lock acquire failed, proceeding unguarded",
			zap.String("key", key), zap.Error(err))
		return true, err
	}
	return ok, nil
}

func (l *redisKeyLock) Release(ctx context.Context, key string) {
	if err := l.client.Del(ctx, lockKeyPrefix+key).Err(); err != nil {
		l.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
}

func (l *redisKeyLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
