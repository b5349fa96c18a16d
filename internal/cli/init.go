// Package cli provides the process bootstrap shared by cmd/savings and
// cmd/savings-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"savings/internal/config"
	"savings/internal/log"
	"savings/internal/storage"
)

// Flags are the command-line options every binary accepts.
type Flags struct {
	EnvFile  string
	LogLevel string
}

// ParseFlags reads args (without the program name) into Flags.
func ParseFlags(name string, args []string) (Flags, error) {
	var f Flags
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	set.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	set.StringVar(&f.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	if err := set.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// LoadEnvFile loads a dotenv file for local development.
// A missing file is not an error; production sets the environment directly.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// SetupLogger builds the text logger for level and makes it the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Handler = nil
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// Bootstrap parses flags, loads the env file and the configuration, and
// returns the validated config with its logger.
func Bootstrap(name string, args []string) (*config.Config, *log.Logger, error) {
	flags, err := ParseFlags(name, args)
	if err != nil {
		return nil, nil, err
	}
	if err := LoadEnvFile(flags.EnvFile); err != nil {
		return nil, nil, err
	}
	cfg := config.Load()
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, SetupLogger(cfg.LogLevel), nil
}

// MustBootstrap is Bootstrap for main: it exits the process on failure.
func MustBootstrap(name string) (*config.Config, *log.Logger) {
	cfg, logger, err := Bootstrap(name, os.Args[1:])
	if err != nil {
		SetupLogger("info").Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the SQLite repository at dbPath or exits the process.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
