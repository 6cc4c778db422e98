package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goGuard/internal/identitytest"
)

func devIdentityCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "dev-identity",
		Short: "Run a local identity service with seeded users",
		Long: `Dev-identity serves POST /auth/login, POST /auth/logout, GET /users/me and
GET /oauth/authorize with the session cookie contract. Seeded users share the
password "` + identitytest.DefaultPassword + `". Cookies are not Secure, so plain http works.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), root.logLevel, root.logFormat)

			srv := identitytest.NewServer()
			for email, id := range srv.Seed(identitytest.DefaultUsers()...) {
				logger.Info("seeded user", slog.String("email", email), slog.String("id", id))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, addr, srv.Handler(), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8081", "Listen address")
	return cmd
}
