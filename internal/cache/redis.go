package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis caches chunk lists in a shared Redis so multiple gateway
// replicas reuse each other's work. Entries expire by TTL instead of
// explicit eviction.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ChunkCache = (*Redis)(nil)

func NewRedis(addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) cacheKey(key string) string {
	return "contractiq:chunks:" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.cacheKey(key), value, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.cacheKey(key)).Err()
}

// Len counts cached chunk lists with SCAN. O(keys), but only the
// stats endpoint calls it.
func (r *Redis) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.cacheKey("*"), 100).Result()
		if err != nil {
			return count
		}
		count += len(keys)
		if next == 0 {
			return count
		}
		cursor = next
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
