package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	maxQueueSounds      = 25
	maxSoundboardSounds = 20
)

var speak int64 = discordgo.PermissionVoiceSpeak

func soundOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         name,
		Description:  description,
		Required:     required,
		Autocomplete: true,
	}
}

func voiceChannelOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  "Voice channel to play in. Defaults to the channel you are in",
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice},
	}
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func subcommand(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     opts,
	}
}

func subcommandGroup(name, description string, subs ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     subs,
	}
}

// numberedSounds builds sound_1..sound_n, the first required of them mandatory
func numberedSounds(n, required int) []*discordgo.ApplicationCommandOption {
	opts := make([]*discordgo.ApplicationCommandOption, 0, n)
	for i := 1; i <= n; i++ {
		opts = append(opts, soundOption(
			fmt.Sprintf("sound_%d", i),
			"Name or ID of sound",
			i <= required,
		))
	}
	return opts
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:                     "play",
		DefaultMemberPermissions: &speak,
		Description:              "Play a sound in your current voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			soundOption("name", "Name or ID of sound to play", true),
			voiceChannelOption(),
		},
	},
	{
		Name:                     "loop",
		DefaultMemberPermissions: &speak,
		Description:              "Play a sound on loop in your current voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			soundOption("name", "Name or ID of sound to loop", true),
		},
	},
	{
		Name:                     "random",
		DefaultMemberPermissions: &speak,
		Description:              "Play a random sound from this server",
		Options: []*discordgo.ApplicationCommandOption{
			voiceChannelOption(),
		},
	},
	{
		Name:                     "queue",
		DefaultMemberPermissions: &speak,
		Description:              "Play sounds one after another",
		Options:     numberedSounds(maxQueueSounds, 2),
	},
	{
		Name:                     "soundboard",
		DefaultMemberPermissions: &speak,
		Description:              "Get a menu of sounds with buttons to play them",
		Options:     numberedSounds(maxSoundboardSounds, 1),
	},
	{
		Name:        "stop",
		Description: "Stop the bot from playing",
	},
	{
		Name:        "disconnect",
		Description: "Disconnect the bot",
	},
	{
		Name:        "search",
		Description: "Search for sounds",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Sound name to search for",
				Required:    true,
			},
		},
	},
	{
		Name:        "list",
		Description: "Show uploaded sounds",
		Options: []*discordgo.ApplicationCommandOption{
			subcommand("user", "Show all sounds you have uploaded"),
			subcommand("server", "Show the sounds uploaded to this server"),
			subcommand("favorite", "Show sounds you have favorited"),
		},
	},
	{
		Name:        "upload",
		Description: "Upload a new sound to the bot",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Name to upload sound to",
				Required:    true,
				MaxLength:   20,
			},
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "file",
				Description: "Sound file to upload",
				Required:    true,
			},
		},
	},
	{
		Name:        "delete",
		Description: "Delete a sound",
		Options: []*discordgo.ApplicationCommandOption{
			soundOption("name", "Name or ID of sound to delete", true),
		},
	},
	{
		Name:        "public",
		Description: "Change a sound between public and private",
		Options: []*discordgo.ApplicationCommandOption{
			soundOption("name", "Name or ID of sound to change privacy setting of", true),
		},
	},
	{
		Name:        "download",
		Description: "Download a sound file",
		Options: []*discordgo.ApplicationCommandOption{
			soundOption("name", "Name or ID of sound to download", true),
		},
	},
	{
		Name:        "favorites",
		Description: "Manage your favorite sounds",
		Options: []*discordgo.ApplicationCommandOption{
			subcommand("add", "Add a sound as a favorite",
				soundOption("name", "Name or ID of sound to favorite", true)),
			subcommand("remove", "Remove a sound from your favorites",
				soundOption("name", "Name or ID of sound to unfavorite", true)),
		},
	},
	{
		Name:        "volume",
		Description: "Change the bot's volume in this server",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "volume",
				Description: "New volume as a percentage",
				MinValue:    new(float64),
				MaxValue:    100,
			},
		},
	},
	{
		Name:        "greet",
		Description: "Manage greet sounds",
		Options: []*discordgo.ApplicationCommandOption{
			subcommandGroup("server", "Manage greet sounds in this server",
				subcommand("set", "Set a user's server-specific join sound",
					soundOption("name", "Name or ID of sound to set as join sound", true),
					userOption("User to set join sound for")),
				subcommand("unset", "Unset a user's server-specific join sound",
					userOption("User to unset join sound for")),
				subcommand("enable", "Enable only server greet sounds on this server"),
			),
			subcommandGroup("user", "Manage your own greet sound",
				subcommand("set", "Set your global join sound",
					soundOption("name", "Name or ID of sound to set as your join sound", true)),
				subcommand("unset", "Unset your global join sound"),
			),
			subcommand("disable", "Disable all greet sounds on this server"),
			subcommand("enable", "Enable all greet sounds on this server"),
		},
	},
}
