package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/m3rciful/expensebot/core/config"
	"github.com/m3rciful/expensebot/core/logger"
	coretelegram "github.com/m3rciful/expensebot/core/telegram"
)

// ConfigCarrier is an app config that embeds the core one.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp supplies everything RunTelegram needs.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options plug app specific loading and bootstrapping into Run.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string
	// EnvFiles are loaded into the process environment before config resolution.
	// Missing files are ignored; variables already set are never overridden.
	EnvFiles []string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads .env files and the config, bootstraps the app and serves Telegram
// updates until SIGINT or SIGTERM.
func Run(opts Options) error {
	switch {
	case opts.LoadConfig == nil:
		return errors.New("cmd: LoadConfig is required")
	case opts.Bootstrap == nil:
		return errors.New("cmd: Bootstrap is required")
	}

	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return fmt.Errorf("cmd: %w", err)
	}
	cfgPath, err := configPath(opts)
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	withLifecycleLogs(&runOpts, time.Now())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.RunTelegram != nil {
		return opts.RunTelegram(ctx, runOpts)
	}
	return coretelegram.RunTelegram(ctx, runOpts)
}

// configPath prefers the env variable (CONFIG_PATH unless overridden) over DefaultConfigPath.
func configPath(opts Options) (string, error) {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

// withLifecycleLogs wraps the app hooks with "app.ready" and "app.shutdown" events.
func withLifecycleLogs(runOpts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := runOpts.OnStart, runOpts.OnStop

	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown", slog.Duration("uptime", logger.Took(startedAt)))
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}

// loadEnvFiles skips missing files; godotenv.Load never overrides variables already set.
func loadEnvFiles(files []string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}
