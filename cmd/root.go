package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/auth"
	"github.com/Tiliavir/time-tracker-server/internal/config"
	"github.com/Tiliavir/time-tracker-server/internal/logging"
	"github.com/Tiliavir/time-tracker-server/internal/service"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

var (
	configPath string
	userEmail  string
)

var rootCmd = &cobra.Command{
	Use:   "tttd",
	Short: "Time tracker server – timers, projects and statistics over HTTP",
	Long: `tttd is a personal time tracking backend. "tttd serve" runs the JSON API;
the other commands work directly on the local database for one user.
Settings live in ~/.tttd/config.json.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.tttd/config.json)")
	rootCmd.PersistentFlags().StringVar(&userEmail, "user", "", "Email of the user local commands act for")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(outlookCmd)
	rootCmd.AddCommand(userCmd)
}

// app bundles what every command needs.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store storage.Store
	svc   *service.Services
	clock service.Clock
}

// openApp loads configuration and opens the app for local commands, which
// never issue or verify tokens.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, nil)
}

// newApp builds the logger, opens the store and wires the services.
func newApp(cfg config.Config, tokens *auth.Tokens) (*app, error) {
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("driver", cfg.Storage.Driver).Str("path", cfg.Storage.Path).Msg("store opened")

	clock := service.SystemClock{}
	svc := service.New(store, service.Options{
		Clock:      clock,
		Tokens:     tokens,
		BcryptCost: cfg.Auth.BcryptCost,
		Log:        log,
	})
	return &app{cfg: cfg, log: log, store: store, svc: svc, clock: clock}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	}
}

// currentUser resolves --user to a user ID.
func (a *app) currentUser(ctx context.Context) (string, error) {
	if userEmail == "" {
		return "", errors.New("--user <email> is required")
	}
	u, err := a.svc.Auth.Lookup(ctx, userEmail)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("no user registered with email %q", userEmail)
	}
	if err != nil {
		return "", err
	}
	return u.ID, nil
}
