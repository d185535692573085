package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockTimeout is returned when another owner still holds the lock after maxWait.
var ErrLockTimeout = errors.New("timeout acquiring redis lock")

const lockRetryInterval = 100 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// RedisLock coordinates widget refreshes across server instances sharing one Redis.
type RedisLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisLock creates a lock owned by a random token. The token is reused for every Acquire.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration, log *zap.Logger) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
		log:    log,
	}
}

func (l *RedisLock) Key() string { return l.key }

// Acquire retries SETNX until it wins, maxWait elapses or ctx is done.
// A maxWait of zero makes a single attempt.
func (l *RedisLock) Acquire(ctx context.Context, maxWait time.Duration) (bool, error) {
	deadline := time.Now().Add(maxWait)
	for {
		ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
		if err != nil {
			return false, err
		}
		if ok {
			l.log.Debug("Acquired lock", zap.String("key", l.key))
			return true, nil
		}

		if !time.Now().Before(deadline) {
			return false, ErrLockTimeout
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release deletes the key only if this lock still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	res, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int64()
	if err != nil {
		return err
	}
	if res == 0 {
		l.log.Warn("Lock not released: it was owned by someone else or expired", zap.String("key", l.key))
	}
	return nil
}
