package cache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

var errStoreDown = errors.New("store unavailable")

type bindingKey struct {
	userID int64
	scope  models.Scope
}

// fakeJoinStore mimics the join_sounds table and counts round-trips
type fakeJoinStore struct {
	mu       sync.Mutex
	rows     map[bindingKey]int64
	gets     atomic.Int32
	sets     atomic.Int32
	failing  atomic.Bool
	lastOnly atomic.Bool
}

func newFakeJoinStore() *fakeJoinStore {
	return &fakeJoinStore{rows: make(map[bindingKey]int64)}
}

func (f *fakeJoinStore) GetJoinSound(_ context.Context, userID int64, scope models.Scope, guildOnly bool) (sql.NullInt64, error) {
	f.gets.Add(1)
	f.lastOnly.Store(guildOnly)
	if f.failing.Load() {
		return sql.NullInt64{}, errStoreDown
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if scope.Valid {
		if id, ok := f.rows[bindingKey{userID, scope}]; ok {
			return sql.NullInt64{Int64: id, Valid: true}, nil
		}
		if guildOnly {
			return sql.NullInt64{}, nil
		}
	}
	if id, ok := f.rows[bindingKey{userID, models.GlobalScope}]; ok && !guildOnly {
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}
	return sql.NullInt64{}, nil
}

func (f *fakeJoinStore) SetJoinSound(_ context.Context, userID int64, scope models.Scope, soundID sql.NullInt64) error {
	f.sets.Add(1)
	if f.failing.Load() {
		return errStoreDown
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.rows, bindingKey{userID, scope})
	if soundID.Valid {
		f.rows[bindingKey{userID, scope}] = soundID.Int64
	}
	return nil
}

// fakeGuildStore keeps guild rows in memory, creating defaults on first read
type fakeGuildStore struct {
	mu      sync.Mutex
	rows    map[int64]models.GuildConfig
	gets    atomic.Int32
	updates atomic.Int32
	failing atomic.Bool
}

func newFakeGuildStore() *fakeGuildStore {
	return &fakeGuildStore{rows: make(map[int64]models.GuildConfig)}
}

func (f *fakeGuildStore) GetGuildConfig(_ context.Context, guildID int64) (*models.GuildConfig, error) {
	f.gets.Add(1)
	if f.failing.Load() {
		return nil, errStoreDown
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, ok := f.rows[guildID]
	if !ok {
		cfg = *models.NewGuildConfig(guildID)
		f.rows[guildID] = cfg
	}
	return &cfg, nil
}

func (f *fakeGuildStore) UpdateGuildConfig(_ context.Context, cfg *models.GuildConfig) error {
	f.updates.Add(1)
	if f.failing.Load() {
		return errStoreDown
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[cfg.ID] = *cfg
	return nil
}

func (f *fakeGuildStore) row(guildID int64) models.GuildConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[guildID]
}
