// Package settings is the per-guild option store. Values are JSON encoded and
// keyed by dotted option names such as "tickets.limit" or "mod.mutedrole".
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend is the durable storage beneath the cache.
type Backend interface {
	LoadGuildSettings(ctx context.Context, guildID string) (map[string]string, error)
	SaveSetting(ctx context.Context, guildID, key, value string) error
	DeleteSetting(ctx context.Context, guildID, key string) error
}

// Getter reads a decoded option into dst and reports whether it was set.
type Getter interface {
	Get(ctx context.Context, guildID, key string, dst any) (bool, error)
}

// Store caches each guild's options after the first read.
// Writes update the cache first; a failed write is returned but not rolled back.
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu     sync.RWMutex
	guilds map[string]map[string]string
	loads  singleflight.Group
}

func NewStore(backend Backend, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.Named("settings"),
		guilds:  make(map[string]map[string]string),
	}
}

func (s *Store) guild(ctx context.Context, guildID string) (map[string]string, error) {
	s.mu.RLock()
	values, ok := s.guilds[guildID]
	s.mu.RUnlock()
	if ok {
		return values, nil
	}

	_, err, _ := s.loads.Do(guildID, func() (any, error) {
		s.mu.RLock()
		_, loaded := s.guilds[guildID]
		s.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		loadedValues, err := s.backend.LoadGuildSettings(ctx, guildID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if _, raced := s.guilds[guildID]; !raced {
			s.guilds[guildID] = loadedValues
		}
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load settings for guild %s: %w", guildID, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guilds[guildID], nil
}

// Get decodes the option into dst. It returns false when the option is unset.
func (s *Store) Get(ctx context.Context, guildID, key string, dst any) (bool, error) {
	values, err := s.guild(ctx, guildID)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	raw, ok := values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

// Set stores an option.
func (s *Store) Set(ctx context.Context, guildID, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	if _, err := s.guild(ctx, guildID); err != nil {
		return err
	}

	s.mu.Lock()
	if values, ok := s.guilds[guildID]; ok {
		values[key] = string(encoded)
	}
	s.mu.Unlock()

	if err := s.backend.SaveSetting(ctx, guildID, key, string(encoded)); err != nil {
		s.logger.Warn("Failed to persist setting",
			zap.String("guild_id", guildID),
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	return nil
}

// Delete removes an option.
func (s *Store) Delete(ctx context.Context, guildID, key string) error {
	if _, err := s.guild(ctx, guildID); err != nil {
		return err
	}

	s.mu.Lock()
	if values, ok := s.guilds[guildID]; ok {
		delete(values, key)
	}
	s.mu.Unlock()

	if err := s.backend.DeleteSetting(ctx, guildID, key); err != nil {
		s.logger.Warn("Failed to delete persisted setting",
			zap.String("guild_id", guildID),
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	return nil
}

// Evict drops the cached options of a guild; the next read reloads them.
func (s *Store) Evict(guildID string) {
	s.mu.Lock()
	delete(s.guilds, guildID)
	s.mu.Unlock()
}

// Value returns the option decoded as T, or def when it is unset or unreadable.
func Value[T any](ctx context.Context, g Getter, guildID, key string, def T) T {
	var v T
	ok, err := g.Get(ctx, guildID, key, &v)
	if err != nil || !ok {
		return def
	}
	return v
}
