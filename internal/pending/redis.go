package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/angelmondragon/checkout-backend/pkg/redis"
)

type redisBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PendingIntentKey(referenceID string) string
}

// RedisStore keeps intents in Redis so they survive restarts and are shared
// across API replicas. Expiry is delegated to the key TTL.
type RedisStore struct {
	client redisBackend
	ttl    time.Duration
}

func NewRedisStore(client redisBackend, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required for pending store")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Put(ctx context.Context, referenceID string, intent Intent) error {
	raw, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode intent: %w", err)
	}
	if err := s.client.Set(ctx, s.client.PendingIntentKey(referenceID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("store intent: %w", err)
	}
	return nil
}

// Create writes the intent with SET NX so replicas sharing the store never
// overwrite each other's reference.
func (s *RedisStore) Create(ctx context.Context, referenceID string, intent Intent) error {
	raw, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode intent: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.client.PendingIntentKey(referenceID), string(raw), s.ttl)
	if err != nil {
		return fmt.Errorf("store intent: %w", err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, referenceID string) (*Intent, error) {
	raw, err := s.client.Get(ctx, s.client.PendingIntentKey(referenceID))
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load intent: %w", err)
	}
	var intent Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &intent, nil
}

func (s *RedisStore) Delete(ctx context.Context, referenceID string) error {
	if err := s.client.Del(ctx, s.client.PendingIntentKey(referenceID)); err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return nil
}
