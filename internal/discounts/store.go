package discounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/angelmondragon/fieldpos-backend/pkg/redis"
)

// Store is the local persisted preset cache: get/set of the serialized list.
type Store interface {
	Load(ctx context.Context) ([]Preset, error)
	Save(ctx context.Context, presets []Preset) error
}

type keyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DiscountPresetsKey(scope string) string
}

// RedisStore keeps the preset list as one JSON value.
type RedisStore struct {
	kv  keyValue
	key string
}

// NewRedisStore scopes the cache key; an empty scope shares one list per deployment.
func NewRedisStore(kv keyValue, scope string) (*RedisStore, error) {
	if kv == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{kv: kv, key: kv.DiscountPresetsKey(scope)}, nil
}

func (s *RedisStore) Load(ctx context.Context) ([]Preset, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if pkgredis.IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load discount presets: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var presets []Preset
	if err := json.Unmarshal([]byte(raw), &presets); err != nil {
		return nil, fmt.Errorf("decode discount presets: %w", err)
	}
	return presets, nil
}

func (s *RedisStore) Save(ctx context.Context, presets []Preset) error {
	if presets == nil {
		presets = []Preset{}
	}
	payload, err := json.Marshal(presets)
	if err != nil {
		return fmt.Errorf("encode discount presets: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(payload), 0); err != nil {
		return fmt.Errorf("save discount presets: %w", err)
	}
	return nil
}
