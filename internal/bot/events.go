package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (bot *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || (s.State.User != nil && v.UserID == s.State.User.ID) {
		return
	}

	logger := bot.logger.With(
		zap.String("guild_id", v.GuildID),
		zap.String("user_id", v.UserID),
	)

	switch {
	case v.BeforeUpdate == nil && v.ChannelID != "":
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		bot.greet(ctx, v.GuildID, v.ChannelID, v.UserID, logger)

	case v.BeforeUpdate != nil && v.ChannelID == "":
		bot.leaveIfAlone(v.GuildID, v.BeforeUpdate.ChannelID, logger)
	}
}

// greet plays the join sound of a user who just connected to voice
func (bot *Bot) greet(ctx context.Context, guildID, channelID, userID string, logger *zap.Logger) {
	greeting, err := bot.sounds.GreetSound(ctx, snowflake(userID), snowflake(guildID))
	if err != nil {
		logger.Error("Failed to resolve greet sound", zap.Error(err))
		return
	}
	if greeting == nil {
		return
	}

	track := bot.track(greeting.Sound, greeting.Volume, false)
	if err := bot.voice.Play(guildID, channelID, track); err != nil {
		logger.Error("Failed to play greet sound", zap.Int64("sound_id", greeting.Sound.ID), zap.Error(err))
		return
	}

	logger.Debug("Playing greet sound", zap.Int64("sound_id", greeting.Sound.ID))
}

// leaveIfAlone disconnects when a user left the bot's channel and at most the
// bot remains in it
func (bot *Bot) leaveIfAlone(guildID, channelID string, logger *zap.Logger) {
	current, ok := bot.voice.ChannelID(guildID)
	if !ok || current != channelID {
		return
	}

	if bot.channelMembers(guildID, channelID) > 1 {
		return
	}

	if err := bot.voice.Disconnect(guildID); err != nil {
		logger.Warn("Failed to leave empty channel", zap.Error(err))
		return
	}
	logger.Debug("Left empty voice channel", zap.String("channel_id", channelID))
}

// channelMembers counts the voice states in a channel, the bot included
func (bot *Bot) channelMembers(guildID, channelID string) int {
	guild, err := bot.session.State.Guild(guildID)
	if err != nil {
		return 0
	}

	bot.session.State.RLock()
	defer bot.session.State.RUnlock()

	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n
}
