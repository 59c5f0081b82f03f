package sounds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/database"
	"github.com/parsascontentcorner/soundfx/internal/models"
)

// MaxNameLength is the longest accepted sound name, in characters
const MaxNameLength = 20

// UploadRequest describes a new sound
type UploadRequest struct {
	Name    string
	URL     string
	GuildID int64
	UserID  int64
}

// ValidateName checks the naming rules of uploads
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLength {
		return fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidName, MaxNameLength)
	}
	if strings.HasPrefix(name, "@") {
		return fmt.Errorf("%w: cannot start with @", ErrInvalidName)
	}
	if strings.IndexFunc(name, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return fmt.Errorf("%w: must contain a non-numerical character", ErrInvalidName)
	}
	return nil
}

// Upload transcodes the file at req.URL and stores it as a public sound of the guild
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Sound, error) {
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}

	named, err := s.store.CountNamedUserSounds(ctx, req.UserID, req.Name)
	if err != nil {
		return nil, err
	}
	if named > 0 {
		return nil, ErrNameInUse
	}

	if err := s.checkQuota(ctx, req.UserID); err != nil {
		return nil, err
	}

	src, err := s.transcoder.Transcode(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	sound := &models.Sound{
		Name:       req.Name,
		Public:     true,
		ServerID:   req.GuildID,
		UploaderID: sql.NullInt64{Int64: req.UserID, Valid: true},
	}
	if err := s.store.CreateSound(ctx, sound, src); err != nil {
		return nil, err
	}

	s.logger.Info("sound uploaded",
		zap.Int64("sound_id", sound.ID),
		zap.Int64("guild_id", req.GuildID),
		zap.Int64("user_id", req.UserID),
		zap.Int("size", len(src)),
	)

	return sound, nil
}

func (s *Service) checkQuota(ctx context.Context, userID int64) error {
	count, err := s.store.CountUserSounds(ctx, userID)
	if err != nil {
		return err
	}
	if count < s.opts.MaxSounds {
		return nil
	}

	if s.opts.Premium == nil {
		return ErrQuotaExceeded
	}

	premium, err := s.opts.Premium.IsPremium(ctx, userID)
	if err != nil {
		// Membership lookups fail for users outside the premium guild
		s.logger.Debug("premium check failed", zap.Int64("user_id", userID), zap.Error(err))
		return ErrQuotaExceeded
	}
	if !premium {
		return ErrQuotaExceeded
	}

	return nil
}

// Delete removes the sound matching query. Uploaders can delete their own sounds;
// guild admins can delete any sound owned by their guild.
func (s *Service) Delete(ctx context.Context, query string, guildID, userID int64, isAdmin bool) (*models.Sound, error) {
	sound, err := s.FindSound(ctx, query, guildID, userID)
	if err != nil {
		return nil, err
	}

	if !sound.UploadedBy(userID) && !(sound.ServerID == guildID && isAdmin) {
		// The sound is returned so callers can tell why
		return sound, ErrForbidden
	}

	if err := s.store.DeleteSound(ctx, sound.ID); err != nil {
		if isNotFound(err) {
			return nil, ErrSoundNotFound
		}
		return nil, err
	}

	// Bindings cascade in the store
	forgotten := s.joins.ForgetSound(sound.ID)

	s.logger.Info("sound deleted",
		zap.Int64("sound_id", sound.ID),
		zap.Int64("user_id", userID),
		zap.Int("bindings_dropped", forgotten),
	)

	return sound, nil
}

// TogglePublic flips the visibility of a sound uploaded by userID
func (s *Service) TogglePublic(ctx context.Context, query string, guildID, userID int64) (*models.Sound, error) {
	sound, err := s.FindSound(ctx, query, guildID, userID)
	if err != nil {
		return nil, err
	}

	if !sound.UploadedBy(userID) {
		return nil, ErrForbidden
	}

	sound.Public = !sound.Public
	if err := s.store.UpdateSoundVisibility(ctx, sound); err != nil {
		if isNotFound(err) {
			return nil, ErrSoundNotFound
		}
		return nil, err
	}

	return sound, nil
}

// Download returns the sound matching query with its stored audio
func (s *Service) Download(ctx context.Context, query string, guildID, userID int64) (*models.Sound, []byte, error) {
	sound, err := s.FindSound(ctx, query, guildID, userID)
	if err != nil {
		return nil, nil, err
	}

	src, err := s.Source(ctx, sound)
	if err != nil {
		return nil, nil, err
	}

	return sound, src, nil
}

// AddFavorite marks the sound matching query as a favorite of userID
func (s *Service) AddFavorite(ctx context.Context, query string, guildID, userID int64) (*models.Sound, error) {
	sound, err := s.FindSound(ctx, query, guildID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.store.AddFavorite(ctx, userID, sound.ID); err != nil {
		return nil, err
	}

	return sound, nil
}

// RemoveFavorite unmarks the sound matching query
func (s *Service) RemoveFavorite(ctx context.Context, query string, guildID, userID int64) (*models.Sound, error) {
	sound, err := s.FindSound(ctx, query, guildID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RemoveFavorite(ctx, userID, sound.ID); err != nil {
		return nil, err
	}

	return sound, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
