package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisRetryInterval = 10 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker locks flights across processes with SET NX PX. The ttl bounds
// how long a crashed holder can keep a flight locked; each holder owns its
// key through a random token so a late release never frees someone else's lock.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, log: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, flightID int64) (func(), error) {
	key := flightLockKey(flightID)
	token := uuid.NewString()

	ticker := time.NewTicker(redisRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}, nil
}

func (l *RedisLocker) Backend() string {
	return BackendRedis
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn("release flight lock", zap.String("key", key), zap.Error(err))
	}
}

func flightLockKey(flightID int64) string {
	return fmt.Sprintf("lock:flight:%d", flightID)
}
