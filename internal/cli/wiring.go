package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kassir-pos/possync/internal/config"
	"github.com/kassir-pos/possync/internal/possync"
	"github.com/kassir-pos/possync/internal/remote"
	"github.com/kassir-pos/possync/internal/store"
)

// loadConfig reads the configuration and applies the --db override.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.DB != "" {
		cfg.DB = opts.DB
	}
	return cfg, nil
}

// newLogger writes text logs to w at the configured level; --verbose
// forces debug.
func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openService loads the configuration, opens the store and wires a
// service. Commands that talk to the backend pass needRemote so that a
// missing URL, key or company is reported up front instead of as an
// unreachable backend.
func openService(cmd *cobra.Command, opts *RootOptions, needRemote bool) (*possync.Service, config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, config.Config{}, err
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())

	backend := opts.Backend
	if backend == nil {
		if needRemote {
			if err := cfg.RequireRemote(); err != nil {
				return nil, config.Config{}, WrapExitError(ExitCommandError, "backend not configured", err)
			}
		}
		backend = remote.New(cfg.Supabase.URL, cfg.Supabase.Key,
			remote.WithTimeout(time.Duration(cfg.Remote.Timeout)),
			remote.WithLogger(logger.With("component", "remote")),
		)
	}

	logger.Debug("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	svc := possync.New(possync.Deps{Store: st, Backend: backend}, possync.Options{
		CompanyID:       cfg.CompanyID,
		StoreLocationID: cfg.StoreLocationID,
		WarehouseID:     cfg.WarehouseID,
		ProbeInterval:   time.Duration(cfg.Monitor.ProbeInterval),
		IDs:             opts.IDs,
		Logger:          logger,
	})
	return svc, cfg, nil
}

// remoteConfigured reports whether the backend can be probed.
func remoteConfigured(opts *RootOptions, cfg config.Config) bool {
	return opts.Backend != nil || cfg.RequireRemote() == nil
}

// closeService closes svc and logs a failure; used in defers.
func closeService(svc *possync.Service, cmd *cobra.Command) {
	if err := svc.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error closing database: %v\n", err)
	}
}
