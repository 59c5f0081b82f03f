// Package cache keeps guild settings and join sound bindings in memory in front of
// the relational store. Entries live for the lifetime of the process.
package cache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

// GuildConfigStore is the durable copy of guild settings
type GuildConfigStore interface {
	GetGuildConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error)
	UpdateGuildConfig(ctx context.Context, cfg *models.GuildConfig) error
}

// GuildConfigCache lazily loads guild settings and hands out one shared handle per guild
type GuildConfigCache struct {
	store  GuildConfigStore
	logger *zap.Logger

	// guildID -> *GuildConfigHandle
	guilds sync.Map
}

// NewGuildConfigCache creates an empty guild settings cache
func NewGuildConfigCache(store GuildConfigStore, logger *zap.Logger) *GuildConfigCache {
	return &GuildConfigCache{
		store:  store,
		logger: logger,
	}
}

// Get returns the shared handle of a guild, loading (or creating) the settings on first access.
// Two concurrent misses may both hit the store; only the first handle is kept.
func (c *GuildConfigCache) Get(ctx context.Context, guildID int64) (*GuildConfigHandle, error) {
	if handle, ok := c.guilds.Load(guildID); ok {
		c.logger.Debug("guild config cache hit", zap.Int64("guild_id", guildID))
		return handle.(*GuildConfigHandle), nil
	}

	c.logger.Debug("guild config cache miss", zap.Int64("guild_id", guildID))

	cfg, err := c.store.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}

	handle, _ := c.guilds.LoadOrStore(guildID, &GuildConfigHandle{
		cfg:   *cfg,
		store: c.store,
	})

	return handle.(*GuildConfigHandle), nil
}

// Len returns the number of cached guilds
func (c *GuildConfigCache) Len() int {
	n := 0
	c.guilds.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// GuildConfigHandle is the shared in-memory copy of one guild's settings.
// Readers run concurrently; Update is exclusive. Commit persists a snapshot and
// serializes with other commits of the same guild without blocking readers.
type GuildConfigHandle struct {
	mu  sync.RWMutex
	cfg models.GuildConfig

	commitMu sync.Mutex
	store    GuildConfigStore
}

// Get returns a copy of the current settings
func (h *GuildConfigHandle) Get() models.GuildConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Update mutates the settings in memory. Call Commit to persist them.
func (h *GuildConfigHandle) Update(fn func(cfg *models.GuildConfig)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.cfg)
}

// Commit writes the current settings to the store
func (h *GuildConfigHandle) Commit(ctx context.Context) error {
	h.commitMu.Lock()
	defer h.commitMu.Unlock()

	snapshot := h.Get()
	if err := h.store.UpdateGuildConfig(ctx, &snapshot); err != nil {
		return fmt.Errorf("failed to commit guild config: %w", err)
	}

	return nil
}
