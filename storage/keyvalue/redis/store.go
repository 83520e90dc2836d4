package rediskv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/tripsync/core"
)

const keyPrefix = "tripsync:session:"

type Store struct {
	client *redis.Client
}

var _ core.KeyValueStore = (*Store)(nil)

// Open connects to Redis and pings it before returning.
func Open(ctx context.Context, conf core.SessionConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}
	return &Store{client: client}, nil
}

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", core.ErrKeyNotFound
	}
	return v, errors.Wrapf(err, "redis get %s", key)
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(s.client.Set(ctx, keyPrefix+key, value, 0).Err(), "redis set %s", key)
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, keyPrefix+k)
	}
	return errors.Wrap(s.client.Del(ctx, prefixed...).Err(), "redis del")
}

func (s *Store) Close() error {
	return s.client.Close()
}
