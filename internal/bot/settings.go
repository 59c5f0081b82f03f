package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/soundfx/internal/models"
	"github.com/parsascontentcorner/soundfx/internal/sounds"
)

const (
	adminsOnly       = "Only admins can change other user's greet sounds."
	greetNotFound    = "Could not find a sound by that name."
	manageServerOnly = "You need the Manage Server permission to do that."
)

var greetPolicies = map[string]struct {
	policy models.AllowGreet
	reply  string
}{
	"greet disable": {
		models.AllowGreetDisabled,
		"Greet sounds have been disabled in this server",
	},
	"greet server enable": {
		models.AllowGreetGuildOnly,
		"Greet sounds have been partially enabled in this server. Use \"/greet server set\" to configure server greet sounds.",
	},
	"greet enable": {
		models.AllowGreetEnabled,
		"Greet sounds have been enabled in this server",
	},
}

func (bot *Bot) handleVolume(ctx context.Context, req *request) error {
	volume, ok := req.intOption("volume")
	if !ok {
		current, err := bot.guildVolume(ctx, req.guildID)
		if err != nil {
			return err
		}
		return req.reply(fmt.Sprintf(
			"Current server volume: %d%%. Change the volume with `/volume <new volume>`",
			current,
		))
	}

	if volume < 0 || volume > models.MaxVolume {
		return req.replyEphemeral(fmt.Sprintf("Volume must be between 0 and %d.", models.MaxVolume))
	}

	if err := bot.sounds.SetVolume(ctx, req.guildID, int16(volume)); err != nil {
		return err
	}

	return req.reply(fmt.Sprintf("Volume changed to %d%%", volume))
}

func (bot *Bot) handleGreetPolicy(ctx context.Context, req *request) error {
	if !req.isAdmin() {
		return req.replyEphemeral(manageServerOnly)
	}

	p, ok := greetPolicies[req.path]
	if !ok {
		return fmt.Errorf("no greet policy for %q", req.path)
	}

	if err := bot.sounds.SetGreetPolicy(ctx, req.guildID, p.policy); err != nil {
		return err
	}

	return req.reply(p.reply)
}

// setGreet binds the sound matching query as the greet sound of userID in scope
func (bot *Bot) setGreet(ctx context.Context, req *request, userID int64, scope models.Scope) (*models.Sound, error) {
	query, _ := req.stringOption("name")

	sound, err := bot.sounds.FindSound(ctx, query, req.guildID, req.userID)
	if err != nil {
		return nil, err
	}

	if err := bot.sounds.SetJoinBinding(ctx, userID, scope, sql.NullInt64{Int64: sound.ID, Valid: true}); err != nil {
		return nil, err
	}

	return sound, nil
}

// greetTarget returns the user option, refusing other users unless the caller is an admin
func (req *request) greetTarget() (int64, bool) {
	target, _ := req.idOption("user")
	userID := snowflake(target)
	return userID, userID == req.userID || req.isAdmin()
}

func (bot *Bot) handleGreetServerSet(ctx context.Context, req *request) error {
	userID, allowed := req.greetTarget()
	if !allowed {
		return req.replyEphemeral(adminsOnly)
	}

	sound, err := bot.setGreet(ctx, req, userID, models.GuildScope(req.guildID))
	if errors.Is(err, sounds.ErrSoundNotFound) {
		return req.reply(greetNotFound)
	}
	if err != nil {
		return err
	}

	return req.reply(fmt.Sprintf("Greet sound has been set to %s (ID %d)", sound.Name, sound.ID))
}

func (bot *Bot) handleGreetServerUnset(ctx context.Context, req *request) error {
	userID, allowed := req.greetTarget()
	if !allowed {
		return req.replyEphemeral(adminsOnly)
	}

	if err := bot.sounds.SetJoinBinding(ctx, userID, models.GuildScope(req.guildID), sql.NullInt64{}); err != nil {
		return err
	}

	return req.reply("Greet sound has been unset")
}

func (bot *Bot) handleGreetUserSet(ctx context.Context, req *request) error {
	sound, err := bot.setGreet(ctx, req, req.userID, models.GlobalScope)
	if errors.Is(err, sounds.ErrSoundNotFound) {
		return req.replyEphemeral(greetNotFound)
	}
	if err != nil {
		return err
	}

	return req.replyEphemeral(fmt.Sprintf("Greet sound has been set to %s (ID %d)", sound.Name, sound.ID))
}

func (bot *Bot) handleGreetUserUnset(ctx context.Context, req *request) error {
	if err := bot.sounds.SetJoinBinding(ctx, req.userID, models.GlobalScope, sql.NullInt64{}); err != nil {
		return err
	}

	return req.replyEphemeral("Greet sound has been unset")
}
