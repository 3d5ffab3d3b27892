package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/stevemurr/poi-editor-server/geojson"
)

// RedisStore stores the encoded collection under StateKey in Redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})}
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, c geojson.Collection) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, StateKey, b, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context) (*geojson.Collection, error) {
	b, err := s.client.Get(ctx, StateKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c geojson.Collection
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, StateKey).Err()
}

func (s *RedisStore) HasData(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, StateKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
