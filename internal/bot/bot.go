// Package bot is the Discord front-end: slash commands, autocomplete, button
// interactions and voice state events.
package bot

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/config"
	"github.com/parsascontentcorner/soundfx/internal/ratelimit"
	"github.com/parsascontentcorner/soundfx/internal/sounds"
	"github.com/parsascontentcorner/soundfx/internal/voice"
)

// handlerTimeout bounds the work done for one interaction or event
const handlerTimeout = 30 * time.Second

// Streamer re-encodes stored audio for playback
type Streamer interface {
	Stream(ctx context.Context, src []byte, volume int16) (io.ReadCloser, error)
}

// commandHandler handles one slash command path, e.g. "greet server set"
type commandHandler func(ctx context.Context, req *request) error

// Bot represents an instance of the soundfx discord bot
type Bot struct {
	session  *discordgo.Session
	sounds   *sounds.Service
	voice    *voice.Manager
	streamer Streamer
	uploads  *ratelimit.RateLimiter
	cfg      config.DiscordConfig
	logger   *zap.Logger

	commandHandlers map[string]commandHandler
}

// NewSession creates the gateway session with the intents the bot needs
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	session.StateEnabled = true

	return session, nil
}

// New wires the bot. Call Open to connect.
func New(
	session *discordgo.Session,
	svc *sounds.Service,
	player *voice.Manager,
	streamer Streamer,
	uploads *ratelimit.RateLimiter,
	cfg config.DiscordConfig,
	logger *zap.Logger,
) *Bot {
	bot := &Bot{
		session:  session,
		sounds:   svc,
		voice:    player,
		streamer: streamer,
		uploads:  uploads,
		cfg:      cfg,
		logger:   logger,
	}

	bot.commandHandlers = map[string]commandHandler{
		"play":                bot.handlePlay,
		"loop":                bot.handleLoop,
		"random":              bot.handleRandom,
		"queue":               bot.handleQueue,
		"soundboard":          bot.handleSoundboard,
		"stop":                bot.handleStop,
		"disconnect":          bot.handleDisconnect,
		"search":              bot.handleSearch,
		"list user":           bot.handleList,
		"list server":         bot.handleList,
		"list favorite":       bot.handleList,
		"upload":              bot.handleUpload,
		"delete":              bot.handleDelete,
		"public":              bot.handlePublic,
		"download":            bot.handleDownload,
		"favorites add":       bot.handleFavoriteAdd,
		"favorites remove":    bot.handleFavoriteRemove,
		"volume":              bot.handleVolume,
		"greet server set":    bot.handleGreetServerSet,
		"greet server unset":  bot.handleGreetServerUnset,
		"greet server enable": bot.handleGreetPolicy,
		"greet user set":      bot.handleGreetUserSet,
		"greet user unset":    bot.handleGreetUserUnset,
		"greet disable":       bot.handleGreetPolicy,
		"greet enable":        bot.handleGreetPolicy,
	}

	return bot
}

// Open connects to the gateway and registers the slash commands
func (bot *Bot) Open() error {
	bot.session.AddHandler(bot.onReady)
	bot.session.AddHandler(bot.onInteraction)
	bot.session.AddHandler(bot.onVoiceStateUpdate)

	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	registered, err := bot.session.ApplicationCommandBulkOverwrite(
		bot.session.State.User.ID,
		bot.cfg.CommandGuildID,
		commands,
	)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	bot.logger.Info("Registered commands",
		zap.Int("count", len(registered)),
		zap.String("guild_id", bot.cfg.CommandGuildID),
	)

	return nil
}

// Close leaves every voice channel and closes the gateway session
func (bot *Bot) Close() error {
	bot.voice.Close()
	return bot.session.Close()
}

func (bot *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	bot.logger.Info("Bot is up",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)

	if err := s.UpdateWatchStatus(0, "for /play"); err != nil {
		bot.logger.Warn("Failed to set status", zap.Error(err))
	}
}

func (bot *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Every command is guild only
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}

	req := &request{
		session: s,
		i:       i,
		guildID: snowflake(i.GuildID),
		userID:  snowflake(i.Member.User.ID),
		logger: bot.logger.With(
			zap.String("interaction_id", uuid.NewString()),
			zap.String("guild_id", i.GuildID),
			zap.String("user_id", i.Member.User.ID),
		),
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		bot.dispatchCommand(ctx, req)
	case discordgo.InteractionApplicationCommandAutocomplete:
		bot.handleAutocomplete(ctx, req)
	case discordgo.InteractionMessageComponent:
		bot.handleComponent(ctx, req)
	}
}

func (bot *Bot) dispatchCommand(ctx context.Context, req *request) {
	path, opts := commandPath(req.i.ApplicationCommandData())
	req.opts = opts
	req.logger = req.logger.With(zap.String("command", path))

	handler, ok := bot.commandHandlers[path]
	if !ok {
		req.logger.Warn("Unknown command")
		return
	}

	req.path = path
	start := time.Now()

	if err := handler(ctx, req); err != nil {
		req.logger.Error("Command failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		req.fail("Something went wrong. Please try again later.")
		return
	}

	req.logger.Debug("Command handled", zap.Duration("duration", time.Since(start)))
}

// snowflake parses a Discord id; ids are unsigned 64 bit but fit in int64 until 2084
func snowflake(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
