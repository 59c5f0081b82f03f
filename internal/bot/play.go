package bot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/models"
	"github.com/parsascontentcorner/soundfx/internal/sounds"
	"github.com/parsascontentcorner/soundfx/internal/voice"
)

const notInVoice = "You are not in a voice chat!"

// track wraps a sound for the player. The source is loaded on first play and
// kept for loops.
func (bot *Bot) track(sound *models.Sound, volume int16, loop bool) voice.Track {
	var src []byte
	return voice.Track{
		Name: sound.Name,
		Loop: loop,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			if src == nil {
				loaded, err := bot.sounds.Source(ctx, sound)
				if err != nil {
					return nil, err
				}
				src = loaded
			}
			return bot.streamer.Stream(ctx, src, volume)
		},
	}
}

// userVoiceChannel returns the voice channel a member is in, or ""
func (bot *Bot) userVoiceChannel(guildID, userID string) string {
	vs, err := bot.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// targetChannel is the channel option if given, else the invoking member's channel
func (bot *Bot) targetChannel(req *request) string {
	if channelID, ok := req.idOption("channel"); ok {
		return channelID
	}
	return bot.userVoiceChannel(req.i.GuildID, req.i.Member.User.ID)
}

func (bot *Bot) guildVolume(ctx context.Context, guildID int64) (int16, error) {
	handle, err := bot.sounds.GuildConfig(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return handle.Get().Volume, nil
}

// playQuery resolves query strictly and plays it in channelID. The returned
// text is the user facing outcome.
func (bot *Bot) playQuery(ctx context.Context, guildID, channelID string, userID int64, query string, loop bool) (string, error) {
	if channelID == "" {
		return notInVoice, nil
	}

	sound, err := bot.sounds.FindSound(ctx, query, snowflake(guildID), userID)
	if errors.Is(err, sounds.ErrSoundNotFound) {
		return "Couldn't find sound by term provided", nil
	}
	if err != nil {
		return "", err
	}

	volume, err := bot.guildVolume(ctx, snowflake(guildID))
	if err != nil {
		return "", err
	}

	if err := bot.voice.Play(guildID, channelID, bot.track(sound, volume, loop)); err != nil {
		return "", fmt.Errorf("failed to play sound %d: %w", sound.ID, err)
	}

	return fmt.Sprintf("Playing sound %s with ID %d", sound.Name, sound.ID), nil
}

func (bot *Bot) handlePlay(ctx context.Context, req *request) error {
	return bot.playCommand(ctx, req, bot.targetChannel(req), false)
}

func (bot *Bot) handleLoop(ctx context.Context, req *request) error {
	return bot.playCommand(ctx, req, bot.userVoiceChannel(req.i.GuildID, req.i.Member.User.ID), true)
}

func (bot *Bot) playCommand(ctx context.Context, req *request, channelID string, loop bool) error {
	if err := req.deferReply(false); err != nil {
		return err
	}

	query, _ := req.stringOption("name")
	msg, err := bot.playQuery(ctx, req.i.GuildID, channelID, req.userID, query, loop)
	if err != nil {
		return err
	}

	return req.say(msg)
}

func (bot *Bot) handleRandom(ctx context.Context, req *request) error {
	channelID := bot.targetChannel(req)
	if channelID == "" {
		return req.reply(notInVoice)
	}

	if err := req.deferReply(false); err != nil {
		return err
	}

	sound, err := bot.sounds.RandomGuildSound(ctx, req.guildID)
	if errors.Is(err, sounds.ErrSoundNotFound) {
		return req.say("No sounds in this server!")
	}
	if err != nil {
		return err
	}

	volume, err := bot.guildVolume(ctx, req.guildID)
	if err != nil {
		return err
	}

	if err := bot.voice.Play(req.i.GuildID, channelID, bot.track(sound, volume, false)); err != nil {
		return fmt.Errorf("failed to play sound %d: %w", sound.ID, err)
	}

	return req.say(fmt.Sprintf("Playing %s (ID %d)", sound.Name, sound.ID))
}

// numberedQueries collects the sound_N options in order
func (req *request) numberedQueries(n int) []string {
	var queries []string
	for i := 1; i <= n; i++ {
		if q, ok := req.stringOption(fmt.Sprintf("sound_%d", i)); ok && q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// findAll resolves each query strictly, skipping those that match nothing
func (bot *Bot) findAll(ctx context.Context, req *request, queries []string) ([]*models.Sound, error) {
	found := make([]*models.Sound, 0, len(queries))
	for _, q := range queries {
		sound, err := bot.sounds.FindSound(ctx, q, req.guildID, req.userID)
		if errors.Is(err, sounds.ErrSoundNotFound) {
			req.logger.Debug("Skipping unknown sound", zap.String("query", q))
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, sound)
	}
	return found, nil
}

func (bot *Bot) handleQueue(ctx context.Context, req *request) error {
	if err := req.deferReply(false); err != nil {
		return err
	}

	channelID := bot.userVoiceChannel(req.i.GuildID, req.i.Member.User.ID)
	if channelID == "" {
		return req.say(notInVoice)
	}

	queued, err := bot.findAll(ctx, req, req.numberedQueries(maxQueueSounds))
	if err != nil {
		return err
	}

	volume, err := bot.guildVolume(ctx, req.guildID)
	if err != nil {
		return err
	}

	tracks := make([]voice.Track, 0, len(queued))
	for _, sound := range queued {
		tracks = append(tracks, bot.track(sound, volume, false))
	}

	if _, err := bot.voice.Enqueue(req.i.GuildID, channelID, tracks...); err != nil {
		return fmt.Errorf("failed to queue sounds: %w", err)
	}

	return req.say(fmt.Sprintf("Queued %d sounds!", len(tracks)))
}

func (bot *Bot) handleSoundboard(ctx context.Context, req *request) error {
	if err := req.deferReply(false); err != nil {
		return err
	}

	board, err := bot.findAll(ctx, req, req.numberedQueries(maxSoundboardSounds))
	if err != nil {
		return err
	}

	content := "**Play a sound:**"
	components := soundboardComponents(board)
	_, err = req.session.InteractionResponseEdit(req.i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	})
	return err
}

func (bot *Bot) handleStop(ctx context.Context, req *request) error {
	if err := bot.voice.Stop(req.i.GuildID); err != nil && !errors.Is(err, voice.ErrNotConnected) {
		return err
	}
	return req.reply("👍")
}

func (bot *Bot) handleDisconnect(ctx context.Context, req *request) error {
	if err := bot.voice.Disconnect(req.i.GuildID); err != nil && !errors.Is(err, voice.ErrNotConnected) {
		return err
	}
	return req.reply("👍")
}
