package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

// JoinSoundStore is the durable copy of join sound bindings
type JoinSoundStore interface {
	GetJoinSound(ctx context.Context, userID int64, scope models.Scope, guildOnly bool) (sql.NullInt64, error)
	SetJoinSound(ctx context.Context, userID int64, scope models.Scope, soundID sql.NullInt64) error
}

// JoinSoundCache remembers, per user and scope, which sound greets the user.
// The absence of a binding is cached like any other answer.
type JoinSoundCache struct {
	store  JoinSoundStore
	logger *zap.Logger

	// userID -> *userBindings
	users sync.Map
}

type userBindings struct {
	mu     sync.RWMutex
	scopes map[models.Scope]sql.NullInt64
}

func (b *userBindings) get(scope models.Scope) (sql.NullInt64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	soundID, ok := b.scopes[scope]
	return soundID, ok
}

func (b *userBindings) set(scope models.Scope, soundID sql.NullInt64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scopes[scope] = soundID
}

func (b *userBindings) delete(match func(scope models.Scope, soundID sql.NullInt64) bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for scope, soundID := range b.scopes {
		if match(scope, soundID) {
			delete(b.scopes, scope)
			removed++
		}
	}
	return removed
}

// NewJoinSoundCache creates an empty join sound cache
func NewJoinSoundCache(store JoinSoundStore, logger *zap.Logger) *JoinSoundCache {
	return &JoinSoundCache{
		store:  store,
		logger: logger,
	}
}

func (c *JoinSoundCache) bindings(userID int64) *userBindings {
	if b, ok := c.users.Load(userID); ok {
		return b.(*userBindings)
	}

	b, _ := c.users.LoadOrStore(userID, &userBindings{
		scopes: make(map[models.Scope]sql.NullInt64),
	})
	return b.(*userBindings)
}

// Resolve returns the sound bound to userID for scope. A cached entry, including a
// cached "no binding", is returned without touching the store. On a miss the store
// is asked (guild binding first, global as fallback unless guildOnly) and the answer
// is cached. Store errors are returned and not cached.
func (c *JoinSoundCache) Resolve(ctx context.Context, userID int64, scope models.Scope, guildOnly bool) (sql.NullInt64, error) {
	b := c.bindings(userID)

	if soundID, ok := b.get(scope); ok {
		c.logger.Debug("join sound cache hit",
			zap.Int64("user_id", userID),
			zap.Bool("global", !scope.Valid),
			zap.Int64("guild_id", scope.Int64),
		)
		return soundID, nil
	}

	c.logger.Debug("join sound cache miss",
		zap.Int64("user_id", userID),
		zap.Bool("global", !scope.Valid),
		zap.Int64("guild_id", scope.Int64),
	)

	soundID, err := c.store.GetJoinSound(ctx, userID, scope, guildOnly)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to resolve join sound: %w", err)
	}

	b.set(scope, soundID)
	return soundID, nil
}

// Update binds soundID (or nothing, when NULL) to userID for scope. The cache is
// updated first, then the store replaces the binding in one transaction. If the store
// write fails the entry is dropped so the next Resolve reads the durable state.
// Changing the global binding also drops the user's guild entries, and unsetting a
// guild binding drops that entry so the next Resolve can fall back to the global one.
func (c *JoinSoundCache) Update(ctx context.Context, userID int64, scope models.Scope, soundID sql.NullInt64) error {
	b := c.bindings(userID)
	if !scope.Valid {
		// Guild entries may hold a fallback to the old global binding
		b.delete(func(s models.Scope, _ sql.NullInt64) bool { return s.Valid })
	}
	if scope.Valid && !soundID.Valid {
		b.delete(func(s models.Scope, _ sql.NullInt64) bool { return s == scope })
	} else {
		b.set(scope, soundID)
	}

	if err := c.store.SetJoinSound(ctx, userID, scope, soundID); err != nil {
		b.delete(func(s models.Scope, _ sql.NullInt64) bool { return s == scope })
		return fmt.Errorf("failed to update join sound: %w", err)
	}

	c.logger.Debug("join sound updated",
		zap.Int64("user_id", userID),
		zap.Bool("global", !scope.Valid),
		zap.Int64("guild_id", scope.Int64),
		zap.Bool("bound", soundID.Valid),
	)

	return nil
}

// InvalidateScope drops every user's cached entry for scope
func (c *JoinSoundCache) InvalidateScope(scope models.Scope) int {
	return c.drop(func(s models.Scope, _ sql.NullInt64) bool { return s == scope })
}

// ForgetSound drops every cached entry that resolves to soundID
func (c *JoinSoundCache) ForgetSound(soundID int64) int {
	return c.drop(func(_ models.Scope, id sql.NullInt64) bool {
		return id.Valid && id.Int64 == soundID
	})
}

func (c *JoinSoundCache) drop(match func(scope models.Scope, soundID sql.NullInt64) bool) int {
	removed := 0
	c.users.Range(func(_, value interface{}) bool {
		removed += value.(*userBindings).delete(match)
		return true
	})
	return removed
}
