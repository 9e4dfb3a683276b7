package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/server"
)

// newServeCmd creates the 'serve' subcommand: run the HTTP API.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the harvesting HTTP API",
		Long: `Starts the HTTP server exposing endpoint submission, service lookup,
harvest triggers, health checks and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			api := server.NewServer(a.detector, a.harvester, a.catalog, a.logger)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
				Handler:           api.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("http server error", zap.Error(err))
					stop()
				}
			}()

			<-ctx.Done()
			a.logger.Info("shutdown initiated")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			a.logger.Info("shutdown complete")
			return nil
		},
	}
}
