package sounds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/parsascontentcorner/soundfx/internal/database"
	"github.com/parsascontentcorner/soundfx/internal/models"
)

var errStoreDown = errors.New("store unavailable")

// memoryStore is an in-memory Store. Search ranking is approximated by id order.
type memoryStore struct {
	mu        sync.Mutex
	nextID    int64
	sounds    map[int64]*models.Sound
	sources   map[int64][]byte
	favorites map[int64]map[int64]bool
	guilds    map[int64]models.GuildConfig
	joins     map[[2]int64]int64

	failing    atomic.Bool
	countCalls atomic.Int32
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:    1,
		sounds:    make(map[int64]*models.Sound),
		sources:   make(map[int64][]byte),
		favorites: make(map[int64]map[int64]bool),
		guilds:    make(map[int64]models.GuildConfig),
		joins:     make(map[[2]int64]int64),
	}
}

func (m *memoryStore) add(name string, guildID, uploaderID int64, public bool) *models.Sound {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &models.Sound{ID: m.nextID, Name: name, Public: public, ServerID: guildID}
	if uploaderID != 0 {
		s.UploaderID = sql.NullInt64{Int64: uploaderID, Valid: true}
	}
	m.nextID++
	m.sounds[s.ID] = s
	m.sources[s.ID] = []byte("src-" + name)
	return s
}

func (m *memoryStore) check() error {
	if m.failing.Load() {
		return errStoreDown
	}
	return nil
}

func (m *memoryStore) filter(keep func(*models.Sound) bool) []*models.Sound {
	out := make([]*models.Sound, 0)
	for _, s := range m.sounds {
		if keep(s) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memoryStore) page(all []*models.Sound, page int) []*models.Sound {
	start := page * database.PageSize
	if start >= len(all) {
		return []*models.Sound{}
	}
	end := start + database.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (m *memoryStore) SearchSounds(_ context.Context, query string, guildID, userID int64, strict bool) ([]*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := database.ParseSoundQuery(query); ok {
		return m.filter(func(s *models.Sound) bool { return s.ID == id && s.VisibleTo(userID, guildID) }), nil
	}
	return m.filter(func(s *models.Sound) bool {
		if strict {
			return s.Name == query && s.VisibleTo(userID, guildID)
		}
		return strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) && s.VisibleTo(userID, guildID)
	}), nil
}

func (m *memoryStore) AutocompleteUserSounds(_ context.Context, prefix string, userID, guildID int64) ([]*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.filter(func(s *models.Sound) bool {
		return strings.HasPrefix(strings.ToLower(s.Name), strings.ToLower(prefix)) &&
			(s.VisibleTo(userID, guildID) || m.favorites[userID][s.ID])
	}), nil
}

func (m *memoryStore) AutocompleteFavoriteSounds(_ context.Context, prefix string, userID int64) ([]*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.filter(func(s *models.Sound) bool {
		return m.favorites[userID][s.ID] && strings.HasPrefix(strings.ToLower(s.Name), strings.ToLower(prefix))
	}), nil
}

func (m *memoryStore) UserSounds(_ context.Context, userID int64, page int) ([]*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page(m.filter(func(s *models.Sound) bool { return s.UploadedBy(userID) }), page), nil
}

func (m *memoryStore) GuildSounds(_ context.Context, guildID int64, page int) ([]*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page(m.filter(func(s *models.Sound) bool { return s.ServerID == guildID }), page), nil
}

func (m *memoryStore) FavoriteSounds(_ context.Context, userID int64, page int) ([]*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page(m.filter(func(s *models.Sound) bool { return m.favorites[userID][s.ID] }), page), nil
}

func (m *memoryStore) CountUserSounds(_ context.Context, userID int64) (int64, error) {
	m.countCalls.Add(1)
	if err := m.check(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filter(func(s *models.Sound) bool { return s.UploadedBy(userID) }))), nil
}

func (m *memoryStore) CountGuildSounds(_ context.Context, guildID int64) (int64, error) {
	m.countCalls.Add(1)
	if err := m.check(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filter(func(s *models.Sound) bool { return s.ServerID == guildID }))), nil
}

func (m *memoryStore) CountFavoriteSounds(_ context.Context, userID int64) (int64, error) {
	m.countCalls.Add(1)
	if err := m.check(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.favorites[userID])), nil
}

func (m *memoryStore) CountNamedUserSounds(_ context.Context, userID int64, name string) (int64, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filter(func(s *models.Sound) bool { return s.UploadedBy(userID) && s.Name == name }))), nil
}

func (m *memoryStore) GetSoundByID(_ context.Context, id int64) (*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok {
		return nil, fmt.Errorf("sound %d: %w", id, database.ErrNotFound)
	}
	c := *s
	return &c, nil
}

func (m *memoryStore) RandomGuildSound(_ context.Context, guildID int64) (*models.Sound, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	found := m.filter(func(s *models.Sound) bool { return s.ServerID == guildID })
	if len(found) == 0 {
		return nil, fmt.Errorf("no sounds in guild %d: %w", guildID, database.ErrNotFound)
	}
	return found[0], nil
}

func (m *memoryStore) GetSoundSource(_ context.Context, id int64) ([]byte, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("sound %d: %w", id, database.ErrNotFound)
	}
	return src, nil
}

func (m *memoryStore) CreateSound(_ context.Context, sound *models.Sound, src []byte) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sound.ID = m.nextID
	m.nextID++
	c := *sound
	m.sounds[sound.ID] = &c
	m.sources[sound.ID] = src
	return nil
}

func (m *memoryStore) UpdateSoundVisibility(_ context.Context, sound *models.Sound) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[sound.ID]
	if !ok {
		return fmt.Errorf("sound %d: %w", sound.ID, database.ErrNotFound)
	}
	s.Public = sound.Public
	return nil
}

func (m *memoryStore) DeleteSound(_ context.Context, id int64) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sounds[id]; !ok {
		return fmt.Errorf("sound %d: %w", id, database.ErrNotFound)
	}
	delete(m.sounds, id)
	delete(m.sources, id)
	for _, favs := range m.favorites {
		delete(favs, id)
	}
	for k, v := range m.joins {
		if v == id {
			delete(m.joins, k)
		}
	}
	return nil
}

func (m *memoryStore) AddFavorite(_ context.Context, userID, soundID int64) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.favorites[userID] == nil {
		m.favorites[userID] = make(map[int64]bool)
	}
	m.favorites[userID][soundID] = true
	return nil
}

func (m *memoryStore) RemoveFavorite(_ context.Context, userID, soundID int64) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites[userID], soundID)
	return nil
}

// Guild and join sound tables, so the real caches can sit on top

func (m *memoryStore) GetGuildConfig(_ context.Context, guildID int64) (*models.GuildConfig, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.guilds[guildID]
	if !ok {
		cfg = *models.NewGuildConfig(guildID)
		m.guilds[guildID] = cfg
	}
	return &cfg, nil
}

func (m *memoryStore) UpdateGuildConfig(_ context.Context, cfg *models.GuildConfig) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guilds[cfg.ID] = *cfg
	return nil
}

func (m *memoryStore) GetJoinSound(_ context.Context, userID int64, scope models.Scope, guildOnly bool) (sql.NullInt64, error) {
	if err := m.check(); err != nil {
		return sql.NullInt64{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if scope.Valid {
		if id, ok := m.joins[[2]int64{userID, scope.Int64}]; ok {
			return sql.NullInt64{Int64: id, Valid: true}, nil
		}
	}
	if !guildOnly || !scope.Valid {
		if id, ok := m.joins[[2]int64{userID, 0}]; ok {
			return sql.NullInt64{Int64: id, Valid: true}, nil
		}
	}
	return sql.NullInt64{}, nil
}

func (m *memoryStore) SetJoinSound(_ context.Context, userID int64, scope models.Scope, soundID sql.NullInt64) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := [2]int64{userID, scope.Int64}
	delete(m.joins, key)
	if soundID.Valid {
		m.joins[key] = soundID.Int64
	}
	return nil
}

type fakeTranscoder struct {
	out  []byte
	err  error
	urls []string
}

func (f *fakeTranscoder) Transcode(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.out, f.err
}

type fakePremium struct {
	premium map[int64]bool
	err     error
}

func (f *fakePremium) IsPremium(_ context.Context, userID int64) (bool, error) {
	return f.premium[userID], f.err
}
