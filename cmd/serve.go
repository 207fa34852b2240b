package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/auth"
	"github.com/Tiliavir/time-tracker-server/internal/config"
	"github.com/Tiliavir/time-tracker-server/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	secret := []byte(cfg.Auth.JWTSecret)
	ephemeral := len(secret) == 0
	if ephemeral {
		if secret, err = auth.GenerateSecret(32); err != nil {
			return err
		}
	}

	a, err := newApp(cfg, auth.NewTokens(secret, time.Duration(cfg.Auth.TokenTTL)))
	if err != nil {
		return err
	}
	defer a.Close()

	if ephemeral {
		a.log.Warn().Msgf("no jwt secret configured (set %s); tokens will not survive a restart", config.EnvJWTSecret)
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{Addr: addr, CORSOrigins: a.cfg.Server.CORSOrigins}, a.svc, a.store, a.log)
	return srv.Run(ctx)
}
