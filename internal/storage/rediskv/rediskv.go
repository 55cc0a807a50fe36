// Package rediskv stores device progress in redis, one string key per value.
package rediskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/tweetle/internal/progress"
)

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
}

type Backend struct {
	redis  redis.UniversalClient
	prefix string
}

func New(c Config) *Backend {
	return &Backend{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

func (b *Backend) Device(id string) progress.KV {
	return &kv{b: b, device: id}
}

type kv struct {
	b      *Backend
	device string
}

func (k *kv) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := k.b.redis.Get(ctx, k.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return v, nil
}

func (k *kv) Set(ctx context.Context, key string, value []byte) error {
	if err := k.b.redis.Set(ctx, k.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

func (k *kv) Delete(ctx context.Context, key string) error {
	if err := k.b.redis.Del(ctx, k.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}

	return nil
}

func (k *kv) key(name string) string {
	return fmt.Sprintf("%s:%s:%s", k.b.prefix, k.device, name)
}
