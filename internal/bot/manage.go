package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/sounds"
	"github.com/parsascontentcorner/soundfx/internal/transcode"
)

const soundNotFound = "Sound could not be found by that name."

func (bot *Bot) handleUpload(ctx context.Context, req *request) error {
	if ok, wait := bot.uploads.Allow(req.userID); !ok {
		return req.replyEphemeral(fmt.Sprintf(
			"You are uploading too quickly. Try again %s.",
			humanize.Time(time.Now().Add(wait)),
		))
	}

	name, _ := req.stringOption("name")
	attachmentID, _ := req.idOption("file")

	data := req.i.ApplicationCommandData()
	if data.Resolved == nil || data.Resolved.Attachments[attachmentID] == nil {
		return req.reply("Please attach a sound file to upload.")
	}
	attachment := data.Resolved.Attachments[attachmentID]

	if err := req.deferReply(false); err != nil {
		return err
	}

	sound, err := bot.sounds.Upload(ctx, sounds.UploadRequest{
		Name:    name,
		URL:     attachment.URL,
		GuildID: req.guildID,
		UserID:  req.userID,
	})
	switch {
	case errors.Is(err, sounds.ErrInvalidName):
		return req.say(fmt.Sprintf(
			"Sound names must be 1 to %d characters, cannot start with @ and must contain a non-numerical character.",
			sounds.MaxNameLength,
		))
	case errors.Is(err, sounds.ErrNameInUse):
		return req.say("You are already using that name. Please choose a unique name for your upload.")
	case errors.Is(err, sounds.ErrQuotaExceeded):
		return req.say(fmt.Sprintf(
			"You have reached the maximum number of sounds (%d). Delete some with `/delete` to upload more.",
			bot.sounds.MaxSounds(),
		))
	case errors.Is(err, transcode.ErrInvalidFile):
		return req.say("Sound failed to upload. Please check the file is a valid audio file.")
	case err != nil:
		return err
	}

	req.logger.Debug("Upload attachment accepted",
		zap.Int64("sound_id", sound.ID),
		zap.String("name", sound.Name),
		zap.String("attachment_size", humanize.Bytes(uint64(attachment.Size))),
	)

	return req.say(fmt.Sprintf("Sound has been uploaded (ID %d)", sound.ID))
}

func (bot *Bot) handleDelete(ctx context.Context, req *request) error {
	query, _ := req.stringOption("name")

	sound, err := bot.sounds.Delete(ctx, query, req.guildID, req.userID, req.isAdmin())
	switch {
	case errors.Is(err, sounds.ErrSoundNotFound):
		return req.reply(soundNotFound)
	case errors.Is(err, sounds.ErrForbidden):
		if sound != nil && sound.ServerID == req.guildID {
			return req.reply("Only server admins can delete sounds uploaded by other users.")
		}
		return req.reply("You can only delete sounds from this guild or that you have uploaded.")
	case err != nil:
		return err
	}

	return req.reply("Sound has been deleted")
}

func (bot *Bot) handlePublic(ctx context.Context, req *request) error {
	query, _ := req.stringOption("name")

	sound, err := bot.sounds.TogglePublic(ctx, query, req.guildID, req.userID)
	switch {
	case errors.Is(err, sounds.ErrSoundNotFound):
		return req.reply(soundNotFound)
	case errors.Is(err, sounds.ErrForbidden):
		return req.reply("You can only change the visibility of sounds you have uploaded. Use `/list` to view your sounds")
	case err != nil:
		return err
	}

	if sound.Public {
		return req.reply("Sound has been set to public 🔓")
	}
	return req.reply("Sound has been set to private 🔒")
}

func (bot *Bot) handleDownload(ctx context.Context, req *request) error {
	query, _ := req.stringOption("name")

	if err := req.deferReply(false); err != nil {
		return err
	}

	sound, src, err := bot.sounds.Download(ctx, query, req.guildID, req.userID)
	if errors.Is(err, sounds.ErrSoundNotFound) {
		return req.say("No sound found by specified name/ID")
	}
	if err != nil {
		return err
	}

	_, err = req.session.FollowupMessageCreate(req.i.Interaction, true, &discordgo.WebhookParams{
		Files: []*discordgo.File{{
			Name:        downloadName(sound),
			ContentType: "audio/ogg",
			Reader:      bytes.NewReader(src),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to send sound file: %w", err)
	}

	return req.edit(fmt.Sprintf("%s (%s)", sound.Name, humanize.Bytes(uint64(len(src)))))
}

func (bot *Bot) handleFavoriteAdd(ctx context.Context, req *request) error {
	query, _ := req.stringOption("name")

	sound, err := bot.sounds.AddFavorite(ctx, query, req.guildID, req.userID)
	if errors.Is(err, sounds.ErrSoundNotFound) {
		return req.reply("Failed to find sound.")
	}
	if err != nil {
		return err
	}

	return req.reply(fmt.Sprintf("Sound %s (ID %d) added to favorites.", sound.Name, sound.ID))
}

func (bot *Bot) handleFavoriteRemove(ctx context.Context, req *request) error {
	query, _ := req.stringOption("name")

	sound, err := bot.sounds.RemoveFavorite(ctx, query, req.guildID, req.userID)
	if errors.Is(err, sounds.ErrSoundNotFound) {
		return req.reply("Failed to find sound.")
	}
	if err != nil {
		return err
	}

	return req.reply(fmt.Sprintf("Sound %s (ID %d) removed from favorites.", sound.Name, sound.ID))
}
