// Package settingsstore persists notification preferences.
package settingsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"CompetitorInsights/internal/notify"
	"CompetitorInsights/internal/ports"
)

// RedisStore keeps settings as one JSON value under a fixed key.
type RedisStore struct {
	client   redis.Cmdable
	key      string
	defaults notify.Settings
}

var _ ports.SettingsStore = (*RedisStore)(nil)

// NewRedisStore wraps a redis client. Fields missing from the stored value
// fall back to defaults.
func NewRedisStore(client redis.Cmdable, key string, defaults notify.Settings) *RedisStore {
	return &RedisStore{client: client, key: key, defaults: defaults}
}

// Load returns the stored settings, or the defaults when nothing is stored.
func (s *RedisStore) Load(ctx context.Context) (notify.Settings, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("get %s: %w", s.key, err)
	}

	settings := s.defaults
	if err := json.Unmarshal(raw, &settings); err != nil {
		return s.defaults, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return settings, nil
}

// Save overwrites the stored settings.
func (s *RedisStore) Save(ctx context.Context, settings notify.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

// MemoryStore keeps settings for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	settings notify.Settings
}

var _ ports.SettingsStore = (*MemoryStore)(nil)

// NewMemoryStore starts from the given settings.
func NewMemoryStore(initial notify.Settings) *MemoryStore {
	return &MemoryStore{settings: initial}
}

func (m *MemoryStore) Load(context.Context) (notify.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemoryStore) Save(_ context.Context, settings notify.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	return nil
}

// Update loads, applies the patch and saves. Concurrent updates are last write wins.
func Update(ctx context.Context, store ports.SettingsStore, patch notify.Patch) (notify.Settings, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return current, err
	}
	next := current.Apply(patch)
	if err := store.Save(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}
