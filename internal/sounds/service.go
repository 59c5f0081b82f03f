// Package sounds resolves which sound to play for whom. It puts the guild and join
// sound caches in front of the store and holds the rules of the sound commands.
package sounds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/cache"
	"github.com/parsascontentcorner/soundfx/internal/models"
	"github.com/parsascontentcorner/soundfx/internal/pager"
)

var (
	// ErrSoundNotFound is returned when a query resolves to no visible sound
	ErrSoundNotFound = errors.New("sound not found")
	// ErrForbidden is returned when the caller may not act on a sound
	ErrForbidden = errors.New("not allowed")
	// ErrInvalidName is returned for upload names that break the naming rules
	ErrInvalidName = errors.New("invalid sound name")
	// ErrNameInUse is returned when the uploader already has a sound with that name
	ErrNameInUse = errors.New("sound name already in use")
	// ErrQuotaExceeded is returned when a non-premium uploader is at the sound limit
	ErrQuotaExceeded = errors.New("sound quota exceeded")
)

// Store is the relational sound catalog
type Store interface {
	SearchSounds(ctx context.Context, query string, guildID, userID int64, strict bool) ([]*models.Sound, error)
	AutocompleteUserSounds(ctx context.Context, prefix string, userID, guildID int64) ([]*models.Sound, error)
	AutocompleteFavoriteSounds(ctx context.Context, prefix string, userID int64) ([]*models.Sound, error)

	UserSounds(ctx context.Context, userID int64, page int) ([]*models.Sound, error)
	GuildSounds(ctx context.Context, guildID int64, page int) ([]*models.Sound, error)
	FavoriteSounds(ctx context.Context, userID int64, page int) ([]*models.Sound, error)
	CountUserSounds(ctx context.Context, userID int64) (int64, error)
	CountGuildSounds(ctx context.Context, guildID int64) (int64, error)
	CountFavoriteSounds(ctx context.Context, userID int64) (int64, error)
	CountNamedUserSounds(ctx context.Context, userID int64, name string) (int64, error)

	GetSoundByID(ctx context.Context, id int64) (*models.Sound, error)
	RandomGuildSound(ctx context.Context, guildID int64) (*models.Sound, error)
	GetSoundSource(ctx context.Context, id int64) ([]byte, error)
	CreateSound(ctx context.Context, sound *models.Sound, src []byte) error
	UpdateSoundVisibility(ctx context.Context, sound *models.Sound) error
	DeleteSound(ctx context.Context, id int64) error
	AddFavorite(ctx context.Context, userID, soundID int64) error
	RemoveFavorite(ctx context.Context, userID, soundID int64) error
}

// Transcoder turns an uploaded file into stored audio
type Transcoder interface {
	Transcode(ctx context.Context, url string) ([]byte, error)
}

// PremiumChecker reports whether a user is exempt from the upload quota
type PremiumChecker interface {
	IsPremium(ctx context.Context, userID int64) (bool, error)
}

// AutocompleteScope selects the candidates offered while typing a sound name
type AutocompleteScope int

const (
	// AutocompleteAll offers every sound the user could play here
	AutocompleteAll AutocompleteScope = iota
	// AutocompleteFavorites offers only the user's favorites
	AutocompleteFavorites
)

// Options tunes the service
type Options struct {
	// MaxSounds is the upload quota of non-premium users
	MaxSounds int64
	// Premium may be nil, in which case nobody is exempt from the quota
	Premium PremiumChecker
}

// Service is the entry point used by command handlers and the voice join handler
type Service struct {
	store      Store
	guilds     *cache.GuildConfigCache
	joins      *cache.JoinSoundCache
	transcoder Transcoder
	opts       Options
	logger     *zap.Logger
}

// NewService wires the service. The caches are owned by the caller and may be shared.
func NewService(
	store Store,
	guilds *cache.GuildConfigCache,
	joins *cache.JoinSoundCache,
	transcoder Transcoder,
	opts Options,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:      store,
		guilds:     guilds,
		joins:      joins,
		transcoder: transcoder,
		opts:       opts,
		logger:     logger,
	}
}

// ResolveSound returns the sounds matching query that the user may use in guildID,
// best candidate first. No match is an empty slice.
func (s *Service) ResolveSound(ctx context.Context, query string, guildID, userID int64, strict bool) ([]*models.Sound, error) {
	found, err := s.store.SearchSounds(ctx, query, guildID, userID, strict)
	if err != nil {
		return nil, fmt.Errorf("failed to search sounds: %w", err)
	}
	return found, nil
}

// FindSound returns the best strict match of query or ErrSoundNotFound
func (s *Service) FindSound(ctx context.Context, query string, guildID, userID int64) (*models.Sound, error) {
	found, err := s.ResolveSound(ctx, query, guildID, userID, true)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrSoundNotFound
	}
	return found[0], nil
}

// Autocomplete suggests up to a page of sounds whose name starts with partial
func (s *Service) Autocomplete(ctx context.Context, partial string, userID, guildID int64, scope AutocompleteScope) ([]*models.Sound, error) {
	var (
		found []*models.Sound
		err   error
	)

	switch scope {
	case AutocompleteFavorites:
		found, err = s.store.AutocompleteFavoriteSounds(ctx, partial, userID)
	default:
		found, err = s.store.AutocompleteUserSounds(ctx, partial, userID, guildID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to autocomplete sounds: %w", err)
	}

	return found, nil
}

// GuildConfig returns the shared settings handle of a guild
func (s *Service) GuildConfig(ctx context.Context, guildID int64) (*cache.GuildConfigHandle, error) {
	return s.guilds.Get(ctx, guildID)
}

// JoinBinding returns the sound bound to userID in scope, if any
func (s *Service) JoinBinding(ctx context.Context, userID int64, scope models.Scope, guildOnly bool) (sql.NullInt64, error) {
	return s.joins.Resolve(ctx, userID, scope, guildOnly)
}

// SetJoinBinding binds soundID to userID in scope. A NULL soundID removes the binding.
func (s *Service) SetJoinBinding(ctx context.Context, userID int64, scope models.Scope, soundID sql.NullInt64) error {
	return s.joins.Update(ctx, userID, scope, soundID)
}

// EncodePage serializes a pager state for a component custom id
func (s *Service) EncodePage(state pager.State) (string, error) {
	return pager.Encode(state)
}

// DecodePage parses a component custom id. Ids that are not pager tokens fail
// with pager.ErrDecode.
func (s *Service) DecodePage(id string) (pager.State, error) {
	return pager.Decode(id)
}

// RandomGuildSound picks a sound owned by guildID or returns ErrSoundNotFound
func (s *Service) RandomGuildSound(ctx context.Context, guildID int64) (*models.Sound, error) {
	sound, err := s.store.RandomGuildSound(ctx, guildID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSoundNotFound
		}
		return nil, err
	}
	return sound, nil
}

// Source loads the stored audio of a sound
func (s *Service) Source(ctx context.Context, sound *models.Sound) ([]byte, error) {
	src, err := s.store.GetSoundSource(ctx, sound.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSoundNotFound
		}
		return nil, err
	}
	return src, nil
}

// MaxSounds is the upload quota of non-premium users
func (s *Service) MaxSounds() int64 {
	return s.opts.MaxSounds
}
