// Package lock provides per-entity locks for manual reconciliation writes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/adapter"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockerConfig tunes lock expiry and acquisition.
type RedisLockerConfig struct {
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration
	// WaitTimeout caps how long Lock waits; zero waits until ctx is done.
	WaitTimeout time.Duration
}

// DefaultRedisLockerConfig returns the default lock settings.
func DefaultRedisLockerConfig() RedisLockerConfig {
	return RedisLockerConfig{
		TTL:           30 * time.Second,
		RetryInterval: 50 * time.Millisecond,
		WaitTimeout:   5 * time.Second,
	}
}

// RedisLocker implements adapter.EntityLocker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client *redis.Client
	config RedisLockerConfig
	logger *zap.Logger
}

var _ adapter.EntityLocker = (*RedisLocker)(nil)

// NewRedisLocker creates a new Redis-backed locker.
func NewRedisLocker(client *redis.Client, config RedisLockerConfig, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = DefaultRedisLockerConfig().TTL
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultRedisLockerConfig().RetryInterval
	}
	return &RedisLocker{
		client: client,
		config: config,
		logger: logger,
	}
}

// Lock blocks until key is held, the wait timeout passes or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.config.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.WaitTimeout)
		defer cancel()
	}

	token := uuid.NewString()
	ticker := time.NewTicker(l.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.config.TTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, domainerror.ErrLockNotAcquired
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}
