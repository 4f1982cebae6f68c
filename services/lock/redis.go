package locksvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/push"
)

const (
	keyPrefix      = "homeroom:"
	defaultLockTTL = 10 * time.Minute
)

// RedisGuard claims a key with SET NX so that only one replica handles it.
// Claims expire after the lock TTL and are never released early.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

var _ push.DispatchGuard = (*RedisGuard)(nil)

func NewRedisGuard(conf core.RedisConfig) *RedisGuard {
	ttl := conf.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisGuard{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Address,
			Password: conf.Password,
			DB:       conf.DB,
		}),
		ttl: ttl,
	}
}

func (g *RedisGuard) Ping(ctx context.Context) error {
	return errors.Wrap(g.client.Ping(ctx).Err(), "pinging redis")
}

// Acquire reports whether this call claimed key.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "acquiring %q", key)
	}
	return ok, nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
