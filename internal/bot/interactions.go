package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/pager"
	"github.com/parsascontentcorner/soundfx/internal/sounds"
	"github.com/parsascontentcorner/soundfx/internal/voice"
)

func (bot *Bot) handleAutocomplete(ctx context.Context, req *request) {
	path, opts := commandPath(req.i.ApplicationCommandData())
	req.opts = opts

	var partial string
	if opt := req.focused(); opt != nil {
		partial, _ = opt.Value.(string)
	}

	scope := sounds.AutocompleteAll
	if path == "favorites remove" {
		scope = sounds.AutocompleteFavorites
	}

	results, err := bot.sounds.Autocomplete(ctx, partial, req.userID, req.guildID, scope)
	if err != nil {
		// An empty list still answers the interaction
		req.logger.Warn("Autocomplete failed", zap.String("command", path), zap.Error(err))
	}

	err = req.session.InteractionRespond(req.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: autocompleteChoices(results),
		},
	})
	if err != nil {
		req.logger.Debug("Failed to send autocomplete choices", zap.Error(err))
	}
}

// handleComponent routes button clicks. Paging tokens are tried first; anything
// else is a soundboard control or sound button.
func (bot *Bot) handleComponent(ctx context.Context, req *request) {
	customID := req.i.MessageComponentData().CustomID
	req.logger = req.logger.With(zap.String("custom_id", customID))

	var err error
	state, decodeErr := bot.sounds.DecodePage(customID)
	switch {
	case decodeErr == nil:
		err = bot.handlePagerClick(ctx, req, state)
	case !errors.Is(decodeErr, pager.ErrDecode):
		err = decodeErr
	case customID == boardStop:
		err = bot.handleBoardStop(req)
	case isBoardMode(customID):
		err = bot.handleBoardMode(req, customID)
	default:
		err = bot.handleBoardSound(ctx, req, customID)
	}

	if err != nil {
		req.logger.Error("Component interaction failed", zap.Error(err))
		req.fail("Something went wrong. Please try again later.")
	}
}

func (bot *Bot) handleBoardStop(req *request) error {
	if err := req.deferUpdate(); err != nil {
		return err
	}
	if err := bot.voice.Stop(req.i.GuildID); err != nil && !errors.Is(err, voice.ErrNotConnected) {
		return err
	}
	return nil
}

func (bot *Bot) handleBoardMode(req *request, mode string) error {
	if req.i.Message == nil {
		return errors.New("mode switch without a message")
	}

	return req.update(&discordgo.InteractionResponseData{
		Content:    req.i.Message.Content,
		Components: switchBoardMode(req.i.Message.Components, mode),
	})
}

func (bot *Bot) handleBoardSound(ctx context.Context, req *request, customID string) error {
	if err := req.deferUpdate(); err != nil {
		return err
	}

	query, loop := parseBoardButton(customID)
	channelID := bot.userVoiceChannel(req.i.GuildID, req.i.Member.User.ID)
	if channelID == "" {
		return req.followupEphemeral(notInVoice)
	}

	msg, err := bot.playQuery(ctx, req.i.GuildID, channelID, req.userID, query, loop)
	if err != nil {
		return err
	}

	req.logger.Debug("Soundboard click", zap.String("outcome", msg))
	return nil
}
