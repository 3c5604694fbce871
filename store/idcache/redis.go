package idcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Cache against a shared Redis/Valkey/DragonflyDB
// instance, so several store processes allocate ids from one counter and
// share a cache of serialized asset blobs.
type Redis struct {
	client     *redis.Client
	counterKey string
	blobPrefix string
	ttl        time.Duration
}

// NewRedis connects to url (a redis:// connection string) and returns a
// Redis cache keyed under counterKey/blobPrefix. Blob entries expire after
// ttl; ttl <= 0 means no expiration.
func NewRedis(url, counterKey, blobPrefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("idcache: parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("idcache: connecting to redis: %w", err)
	}

	return &Redis{client: client, counterKey: counterKey, blobPrefix: blobPrefix, ttl: ttl}, nil
}

// NewRedisFromClient wraps an already-constructed client (used by tests
// against miniredis).
func NewRedisFromClient(client *redis.Client, counterKey, blobPrefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, counterKey: counterKey, blobPrefix: blobPrefix, ttl: ttl}
}

// NextID implements Cache via INCR, atomic across every connected process.
func (r *Redis) NextID(ctx context.Context) (int64, error) {
	return r.client.Incr(ctx, r.counterKey).Result()
}

// Peek implements Cache.
func (r *Redis) Peek(ctx context.Context) (int64, error) {
	n, err := r.client.Get(ctx, r.counterKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("idcache: peeking counter: %w", err)
	}
	return n, nil
}

// SeedNextID implements Cache: sets the counter to n only if unset or
// currently lower. The compare and the set run as one server-side script,
// so a concurrent INCR from another process is never overwritten.
func (r *Redis) SeedNextID(ctx context.Context, n int64) error {
	ok, err := r.client.SetNX(ctx, r.counterKey, n, 0).Result()
	if err != nil {
		return fmt.Errorf("idcache: seeding counter: %w", err)
	}
	if ok {
		return nil
	}
	const raise = `if (tonumber(redis.call('GET', KEYS[1])) or -1) < tonumber(ARGV[1]) then redis.call('SET', KEYS[1], ARGV[1]) end return 0`
	if err := r.client.Eval(ctx, raise, []string{r.counterKey}, n).Err(); err != nil {
		return fmt.Errorf("idcache: raising counter: %w", err)
	}
	return nil
}

func (r *Redis) blobKey(key string) string {
	return r.blobPrefix + ":" + key
}

// GetBlob implements Cache.
func (r *Redis) GetBlob(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.blobKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idcache: getting %s: %w", key, err)
	}
	return data, true, nil
}

// PutBlob implements Cache.
func (r *Redis) PutBlob(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.blobKey(key), data, r.ttl).Err()
}

// InvalidateBlob implements Cache.
func (r *Redis) InvalidateBlob(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.blobKey(key)).Err()
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}
