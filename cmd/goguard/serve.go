package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/gate"
	"github.com/MrEthical07/goGuard/metrics/export/prometheus"
	"github.com/MrEthical07/goGuard/middleware"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(root *rootOptions) *cobra.Command {
	var (
		addr      string
		upstream  string
		protected []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Guard routes in front of an upstream app",
		Long: `Serve runs the route guard as a reverse proxy. Requests for protected paths
without a session indicator are redirected to the login page; visits to the login
page with a session are redirected home. Everything else is proxied to --upstream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(root.configPath)
			if err != nil {
				return err
			}
			if len(protected) > 0 {
				s.engine.Routes.Protected = protected
			}
			logger := newLogger(cmd.ErrOrStderr(), root.logLevel, root.logFormat)

			target, err := url.Parse(upstream)
			if err != nil || target.Scheme == "" || target.Host == "" {
				return fmt.Errorf("invalid --upstream %q", upstream)
			}

			engine, cleanup, err := buildEngine(s, logger, gate.NoOpSink{})
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, addr, newEdgeRouter(engine, target), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&upstream, "upstream", "http://127.0.0.1:3000", "Upstream app URL")
	cmd.Flags().StringSliceVar(&protected, "protect", nil, "Protected path patterns (overrides config)")
	return cmd
}

// newEdgeRouter mounts health and metrics, then the guarded proxy for everything else.
func newEdgeRouter(engine *goGuard.Engine, upstream *url.URL) http.Handler {
	logger := engine.Logger()

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WarnContext(r.Context(), "upstream error",
			slog.String("request_id", goGuard.RequestIDFromContext(r.Context())),
			slog.Any("error", err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(engine).Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RouteGuard(engine))
		r.Handle("/*", proxy)
	})
	return r
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down", slog.String("addr", addr))
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
