package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if this owner still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis lock (SET NX PX) shared by every API replica.
// TTL bounds how long a crashed holder can block a key.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *logrus.Logger
}

func NewRedis(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: "participa:lock:", ttl: ttl, retry: 25 * time.Millisecond, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	owner := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, k, owner, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrNotAcquired
			}
			return nil, err
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ErrNotAcquired
		case <-t.C:
		}
	}
	return func() {
		// release must run even if the request context is already cancelled
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{k}, owner).Err(); err != nil && l.logger != nil {
			l.logger.WithError(err).WithField("key", k).Warn("lock release failed")
		}
	}, nil
}
