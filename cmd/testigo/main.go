package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/testigo/testigo/internal/clock"
	"github.com/testigo/testigo/internal/config"
	"github.com/testigo/testigo/internal/recorder"
	"github.com/testigo/testigo/internal/storage"
	"github.com/testigo/testigo/internal/storage/bolt"
	"github.com/testigo/testigo/internal/storage/redis"
)

func main() {
	Execute()
}

// app bundles the dependencies every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   storage.Store
	manager *recorder.Manager
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		manager: recorder.NewManager(store, clock.RealClock{}, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
}

// reattachOpen adopts the newest open session for the configured user, so a
// fresh process can continue a session begun by an earlier one.
func (a *app) reattachOpen(ctx context.Context) (*storage.Session, error) {
	open, err := a.manager.FindOpenSession(ctx, a.cfg.Recorder.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, recorder.ErrNoActiveSession
		}
		return nil, err
	}
	return a.manager.Reattach(ctx, open.ID)
}

// openStorage opens the configured storage backend
func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return bolt.Open(cfg.Path)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Default to console output for an interactive tool
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// formatElapsed renders seconds as HH:MM:SS.
func formatElapsed(seconds int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
