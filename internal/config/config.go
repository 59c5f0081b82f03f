// Package config provides application configuration management using environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// SystemEnvFile is read after the working directory .env, if present
const SystemEnvFile = "/etc/soundfx/config.env"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Discord  DiscordConfig
	Database DatabaseConfig
	Sounds   SoundsConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCPort string
	Env      string
}

// DiscordConfig holds the bot credentials
type DiscordConfig struct {
	Token string
	// CommandGuildID registers commands in one guild only (instant refresh while developing)
	CommandGuildID string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SoundsConfig holds upload and playback limits
type SoundsConfig struct {
	MaxSounds        int64
	UploadMaxSize    uint64
	FFmpegPath       string
	PatreonGuildID   string
	PatreonRoleID    string
	UploadsPerMinute int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads the configuration from the environment, after optionally loading
// .env and the system env file
func Load() (*Config, error) {
	// godotenv never overrides variables that are already set, so .env wins over the system file
	_ = godotenv.Load()
	_ = godotenv.Load(SystemEnvFile)

	env := &envReader{}

	cfg := &Config{
		Server: ServerConfig{
			GRPCPort: env.str("GRPC_PORT", "50051"),
			Env:      env.str("ENVIRONMENT", "development"),
		},
		Discord: DiscordConfig{
			Token:          env.str("DISCORD_TOKEN", ""),
			CommandGuildID: env.str("COMMAND_GUILD_ID", ""),
		},
		Database: DatabaseConfig{
			Host:         env.str("DB_HOST", "localhost"),
			Port:         env.str("DB_PORT", "5432"),
			User:         env.str("DB_USER", "soundfx"),
			Password:     env.str("DB_PASSWORD", ""),
			Name:         env.str("DB_NAME", "soundfx"),
			SSLMode:      env.str("DB_SSLMODE", "disable"),
			MaxOpenConns: env.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: env.integer("DB_MAX_IDLE_CONNS", 5),
		},
		Sounds: SoundsConfig{
			MaxSounds:        int64(env.integer("MAX_SOUNDS", 8)),
			UploadMaxSize:    env.bytes("UPLOAD_MAX_SIZE", "2MiB"),
			FFmpegPath:       env.str("FFMPEG_PATH", "ffmpeg"),
			PatreonGuildID:   env.str("PATREON_GUILD_ID", ""),
			PatreonRoleID:    env.str("PATREON_ROLE_ID", ""),
			UploadsPerMinute: env.integer("UPLOADS_PER_MINUTE", 3),
		},
		Logging: LoggingConfig{
			Level:  env.str("LOG_LEVEL", "info"),
			Format: env.str("LOG_FORMAT", "json"),
			File:   env.str("LOG_FILE", ""),
		},
	}

	if env.err != nil {
		return nil, env.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate Discord Config
	if c.Discord.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}

	// Validate Database Config
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	// Validate Sounds Config
	if c.Sounds.MaxSounds < 0 {
		return fmt.Errorf("MAX_SOUNDS must not be negative")
	}
	if c.Sounds.UploadMaxSize == 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be positive")
	}
	if c.Sounds.UploadsPerMinute <= 0 {
		return fmt.Errorf("UPLOADS_PER_MINUTE must be positive")
	}
	if (c.Sounds.PatreonGuildID == "") != (c.Sounds.PatreonRoleID == "") {
		return fmt.Errorf("PATREON_GUILD_ID and PATREON_ROLE_ID must be set together")
	}

	// Snowflakes are unsigned decimal ids
	snowflakes := []struct{ key, value string }{
		{"COMMAND_GUILD_ID", c.Discord.CommandGuildID},
		{"PATREON_GUILD_ID", c.Sounds.PatreonGuildID},
		{"PATREON_ROLE_ID", c.Sounds.PatreonRoleID},
	}
	for _, sf := range snowflakes {
		if sf.value == "" {
			continue
		}
		if _, err := strconv.ParseUint(sf.value, 10, 64); err != nil {
			return fmt.Errorf("%s must be a numeric id", sf.key)
		}
	}

	// Validate Logging Config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	return nil
}

// PremiumEnabled reports whether a patreon role lifts the upload quota
func (c *SoundsConfig) PremiumEnabled() bool {
	return c.PatreonGuildID != "" && c.PatreonRoleID != ""
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// envReader reads typed variables and keeps the first parse error
type envReader struct {
	err error
}

// str returns the variable or def when it is unset or empty
func (r *envReader) str(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func (r *envReader) integer(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	n, err := strconv.Atoi(value)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return n
}

// bytes parses sizes such as "2MiB" or "4 MB"
func (r *envReader) bytes(key, def string) uint64 {
	n, err := humanize.ParseBytes(r.str(key, def))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return n
}
