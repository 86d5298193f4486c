package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps one hash per account: decrypt:<account> -> {id: value}.
type RedisCache struct {
	client *redis.Client
}

var _ DecryptCache = (*RedisCache)(nil)

func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Get(ctx context.Context, account, id string) (uint64, bool, error) {
	raw, err := r.client.HGet(ctx, hashKey(account), id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis hget: %w", err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached value for %s: %w", id, err)
	}
	return v, true, nil
}

func (r *RedisCache) Set(ctx context.Context, account, id string, value uint64) error {
	if err := r.client.HSet(ctx, hashKey(account), id, strconv.FormatUint(value, 10)).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, account, id string) error {
	if err := r.client.HDel(ctx, hashKey(account), id).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (r *RedisCache) Clear(ctx context.Context, account string) error {
	if err := r.client.Del(ctx, hashKey(account)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func hashKey(account string) string {
	return "decrypt:" + accountKey(account)
}
