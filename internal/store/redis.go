package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// SeenUpdate records a Telegram update id and reports whether it was already
// seen inside the TTL window. The transport redelivers updates until it gets
// a 2xx, so duplicate ids must collapse to a single handled update.
func (r *Redis) SeenUpdate(ctx context.Context, updateID int64, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lumen:update:%d", updateID)
	set, err := r.Client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

// AcquireJobLock takes a best-effort run lock for a named job. Overlapping
// cron triggers get false and skip the run; the lock expires on its own so a
// crashed run never wedges the job.
func (r *Redis) AcquireJobLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := "lumen:joblock:" + name
	return r.Client.SetNX(ctx, key, 1, ttl).Result()
}

// ReleaseJobLock drops a job lock early when a run finishes before the TTL.
func (r *Redis) ReleaseJobLock(ctx context.Context, name string) error {
	return r.Client.Del(ctx, "lumen:joblock:"+name).Err()
}
