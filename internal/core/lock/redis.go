package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	redisKeyPrefix  = "expense-approval:lock:"
	redisRetryDelay = 25 * time.Millisecond
)

// RedisLocker shares leases between API instances. Each lease expires after ttl
// so a crashed holder cannot wedge a tenant.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker fails when client is nil or ttl is not positive.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
		wait:   wait,
	}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisKeyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(redisRetryDelay)
	defer ticker.Stop()

	for {
		token, ok, err := l.TryLock(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = l.release(releaseCtx, key, token)
			}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		}
	}
}

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{redisKeyPrefix + key}, token).Err()
}
