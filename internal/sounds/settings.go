package sounds

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

// Greeting is the sound to play for a user joining voice, at the guild volume
type Greeting struct {
	Sound  *models.Sound
	Volume int16
}

// GreetSound resolves the greeting of userID joining voice in guildID under the
// guild's greet policy. It returns nil when nothing should play.
func (s *Service) GreetSound(ctx context.Context, userID, guildID int64) (*Greeting, error) {
	handle, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	cfg := handle.Get()

	if cfg.AllowGreets == models.AllowGreetDisabled {
		return nil, nil
	}

	soundID, err := s.joins.Resolve(ctx, userID, models.GuildScope(guildID), cfg.AllowGreets == models.AllowGreetGuildOnly)
	if err != nil {
		return nil, err
	}
	if !soundID.Valid {
		return nil, nil
	}

	sound, err := s.store.GetSoundByID(ctx, soundID.Int64)
	if err != nil {
		if isNotFound(err) {
			// Deleted elsewhere; the binding went with it
			s.joins.ForgetSound(soundID.Int64)
			return nil, nil
		}
		return nil, err
	}

	return &Greeting{Sound: sound, Volume: cfg.Volume}, nil
}

// SetVolume stores the playback volume of a guild
func (s *Service) SetVolume(ctx context.Context, guildID int64, volume int16) error {
	if volume < 0 || volume > models.MaxVolume {
		return fmt.Errorf("volume %d out of range 0..%d", volume, models.MaxVolume)
	}

	handle, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return err
	}

	handle.Update(func(cfg *models.GuildConfig) { cfg.Volume = volume })
	return handle.Commit(ctx)
}

// SetGreetPolicy stores the greet policy of a guild
func (s *Service) SetGreetPolicy(ctx context.Context, guildID int64, policy models.AllowGreet) error {
	handle, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return err
	}

	handle.Update(func(cfg *models.GuildConfig) { cfg.AllowGreets = policy })
	if err := handle.Commit(ctx); err != nil {
		return err
	}

	// Cached resolutions in this guild were made under the old policy
	dropped := s.joins.InvalidateScope(models.GuildScope(guildID))

	s.logger.Info("greet policy changed",
		zap.Int64("guild_id", guildID),
		zap.Stringer("policy", policy),
		zap.Int("bindings_dropped", dropped),
	)

	return nil
}
