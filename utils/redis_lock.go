package utils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/fitquest/engine"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serialises a key across instances with SET NX PX. Holders in
// the same process queue on a local lock first; when Redis fails the local
// lock alone is used.
type RedisLocker struct {
	client *redis.Client
	local  *engine.KeyedMutex
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker returns a locker on rc. rc may be nil, giving a process-local locker.
func NewRedisLocker(rc *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		client: rc,
		local:  engine.NewKeyedMutex(),
		prefix: "lock:",
		ttl:    ttl,
		poll:   20 * time.Millisecond,
	}
}

// Lock acquires key, waiting until it is free or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	if l.client == nil {
		return unlockLocal, nil
	}

	redisKey := l.prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				unlockLocal()
				return nil, ctxErr
			}
			if Sugar != nil {
				Sugar.Warnf("redis lock unavailable key=%s, using local lock: %v", redisKey, err)
			}
			return unlockLocal, nil
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			unlockLocal()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err(); err != nil && Sugar != nil {
				Sugar.Warnf("redis unlock failed key=%s: %v", redisKey, err)
			}
			unlockLocal()
		})
	}, nil
}
