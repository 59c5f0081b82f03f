package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// request is one interaction being handled
type request struct {
	session *discordgo.Session
	i       *discordgo.InteractionCreate
	guildID int64
	userID  int64
	path    string
	opts    []*discordgo.ApplicationCommandInteractionDataOption
	logger  *zap.Logger

	// responded is set once the initial interaction response went out
	responded bool
}

// commandPath flattens subcommand groups into "name group sub" and returns the
// options of the innermost subcommand
func commandPath(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	parts := []string{data.Name}
	opts := data.Options

	for len(opts) == 1 {
		opt := opts[0]
		if opt.Type != discordgo.ApplicationCommandOptionSubCommand &&
			opt.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		parts = append(parts, opt.Name)
		opts = opt.Options
	}

	return strings.Join(parts, " "), opts
}

func (r *request) option(name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range r.opts {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func (r *request) stringOption(name string) (string, bool) {
	opt := r.option(name)
	if opt == nil {
		return "", false
	}
	s, ok := opt.Value.(string)
	return s, ok
}

func (r *request) intOption(name string) (int64, bool) {
	opt := r.option(name)
	if opt == nil {
		return 0, false
	}
	// Integer options arrive as float64 from JSON
	f, ok := opt.Value.(float64)
	return int64(f), ok
}

// idOption returns the snowflake of a user, channel or attachment option
func (r *request) idOption(name string) (string, bool) {
	return r.stringOption(name)
}

// focused returns the option being typed during autocomplete
func (r *request) focused() *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range r.opts {
		if opt.Focused {
			return opt
		}
	}
	return nil
}

// hasPermission checks the invoking member's permissions in the channel
func (r *request) hasPermission(perm int64) bool {
	perms := r.i.Member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&perm == perm
}

func (r *request) isAdmin() bool {
	return r.hasPermission(discordgo.PermissionManageServer)
}

func (r *request) respond(data *discordgo.InteractionResponseData) error {
	err := r.session.InteractionRespond(r.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		r.responded = true
	}
	return err
}

// reply sends a plain message
func (r *request) reply(content string) error {
	return r.respond(&discordgo.InteractionResponseData{Content: content})
}

// replyEphemeral sends a message only the invoking user sees
func (r *request) replyEphemeral(content string) error {
	return r.respond(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// deferReply acknowledges a slow command; finish it with edit
func (r *request) deferReply(ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := r.session.InteractionRespond(r.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		r.responded = true
	}
	return err
}

// deferUpdate acknowledges a component click without changing the message
func (r *request) deferUpdate() error {
	err := r.session.InteractionRespond(r.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err == nil {
		r.responded = true
	}
	return err
}

// update replaces the message a component belongs to
func (r *request) update(data *discordgo.InteractionResponseData) error {
	err := r.session.InteractionRespond(r.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
	if err == nil {
		r.responded = true
	}
	return err
}

// edit replaces the content of a deferred reply
func (r *request) edit(content string) error {
	_, err := r.session.InteractionResponseEdit(r.i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

// say answers with content whether or not the reply was deferred
func (r *request) say(content string) error {
	if r.responded {
		return r.edit(content)
	}
	return r.reply(content)
}

// followupEphemeral sends an extra message only the invoking user sees
func (r *request) followupEphemeral(content string) error {
	_, err := r.session.FollowupMessageCreate(r.i.Interaction, false, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}

// fail tells the user something went wrong, logging if even that fails.
// Component messages are never overwritten.
func (r *request) fail(content string) {
	var err error
	switch {
	case !r.responded:
		err = r.replyEphemeral(content)
	case r.i.Type == discordgo.InteractionMessageComponent:
		err = r.followupEphemeral(content)
	default:
		err = r.edit(content)
	}
	if err != nil {
		r.logger.Warn("Failed to send error response", zap.Error(err))
	}
}
