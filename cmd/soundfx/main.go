// Package main is the entry point of the soundfx bot.
// It connects to Discord, serves gRPC health checks and manages the database schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/bot"
	"github.com/parsascontentcorner/soundfx/internal/cache"
	"github.com/parsascontentcorner/soundfx/internal/config"
	"github.com/parsascontentcorner/soundfx/internal/database"
	grpcserver "github.com/parsascontentcorner/soundfx/internal/grpc"
	"github.com/parsascontentcorner/soundfx/internal/ratelimit"
	"github.com/parsascontentcorner/soundfx/internal/sounds"
	"github.com/parsascontentcorner/soundfx/internal/transcode"
	"github.com/parsascontentcorner/soundfx/internal/voice"
	"github.com/parsascontentcorner/soundfx/pkg/logger"
)

const (
	healthInterval = 15 * time.Second
	pruneInterval  = 10 * time.Minute
	bucketIdle     = time.Hour
)

var (
	migrationsPath string
	skipMigrations bool
	migrateSteps   int

	rootCmd = &cobra.Command{
		Use:           "soundfx",
		Short:         "Discord soundboard bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Long: "Apply every pending migration, or with --steps apply (positive) or roll back\n" +
			"(negative) that many migrations, then print the schema version.",
		Args:  cobra.NoArgs,
		RunE:  migrateOnly,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", "internal/database/migrations",
		"directory holding the SQL migrations")
	rootCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false,
		"start without applying pending migrations")
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0,
		"number of migrations to apply, negative to roll back, 0 for all pending")
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration, builds the logger and connects to the database
func setup() (*config.Config, *zap.Logger, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, log, db, nil
}

func migrateOnly(cmd *cobra.Command, _ []string) error {
	_, log, db, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
		_ = log.Sync()
	}()

	if err := db.MigrateSteps(migrationsPath, migrateSteps); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, ok, err := db.SchemaVersion(migrationsPath)
	if err != nil {
		return err
	}
	if !ok {
		cmd.Println("schema is empty")
		return nil
	}
	cmd.Printf("schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
		// Sync errors on stdout/stderr are expected for pipes and terminals
		_ = log.Sync()
	}()

	log.Info("starting soundfx",
		zap.String("environment", cfg.Server.Env),
		zap.String("grpc_port", cfg.Server.GRPCPort),
		zap.Int64("max_sounds", cfg.Sounds.MaxSounds),
	)

	if !skipMigrations {
		if err := runMigrations(db, log); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := bot.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}

	opts := sounds.Options{MaxSounds: cfg.Sounds.MaxSounds}
	if premium := bot.NewPremiumChecker(session, cfg.Sounds); premium != nil {
		opts.Premium = premium
	}

	guilds := cache.NewGuildConfigCache(db, log)
	joins := cache.NewJoinSoundCache(db, log)
	transcoder := transcode.New(cfg.Sounds.FFmpegPath, cfg.Sounds.UploadMaxSize, log)
	svc := sounds.NewService(db, guilds, joins, transcoder, opts, log)

	player := voice.NewManager(voice.DiscordJoiner(session), log)

	uploads := ratelimit.NewRateLimiter(cfg.Sounds.UploadsPerMinute, log)
	uploads.StartPruneJob(ctx, pruneInterval, bucketIdle)

	soundBot := bot.New(session, svc, player, transcoder, uploads, cfg.Discord, log)

	grpcServer, err := grpcserver.NewServer(db, cfg.Server.GRPCPort, log)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.StartHealthJob(ctx, healthInterval)

	grpcErrChan := make(chan error, 1)
	go func() {
		if err := grpcServer.Serve(); err != nil {
			grpcErrChan <- err
		}
	}()

	if err := soundBot.Open(); err != nil {
		grpcServer.Stop()
		return err
	}

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case serveErr = <-grpcErrChan:
		log.Error("gRPC server error", zap.Error(serveErr))
	case sig := <-sigChan:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	log.Info("shutting down...")
	cancel()

	if err := soundBot.Close(); err != nil {
		log.Error("failed to close discord session", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("shut down successfully")
	if serveErr != nil {
		return fmt.Errorf("gRPC server failed: %w", serveErr)
	}
	return nil
}

// runMigrations applies pending migrations from migrationsPath
func runMigrations(db *database.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	if err := db.RunMigrations(migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}
