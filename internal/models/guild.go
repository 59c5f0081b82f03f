package models

import "database/sql"

// AllowGreet is the greet sound policy of a guild
type AllowGreet int16

const (
	AllowGreetEnabled   AllowGreet = 1
	AllowGreetGuildOnly AllowGreet = 0
	AllowGreetDisabled  AllowGreet = -1
)

// String returns a human readable policy name
func (a AllowGreet) String() string {
	switch a {
	case AllowGreetEnabled:
		return "enabled"
	case AllowGreetGuildOnly:
		return "guild_only"
	case AllowGreetDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Defaults applied to a guild seen for the first time
const (
	DefaultPrefix = "?"
	DefaultVolume = 100
	MaxVolume     = 100
)

// GuildConfig holds per-guild settings (one row in servers)
type GuildConfig struct {
	ID          int64         `json:"id"`
	Prefix      string        `json:"prefix"`
	Volume      int16         `json:"volume"`
	AllowGreets AllowGreet    `json:"allow_greets"`
	AllowedRole sql.NullInt64 `json:"allowed_role"`
}

// NewGuildConfig returns the default configuration for a guild
func NewGuildConfig(guildID int64) *GuildConfig {
	return &GuildConfig{
		ID:          guildID,
		Prefix:      DefaultPrefix,
		Volume:      DefaultVolume,
		AllowGreets: AllowGreetEnabled,
	}
}
