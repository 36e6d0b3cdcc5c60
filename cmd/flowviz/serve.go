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

	"github.com/dd0wney/cluso-flowviz/pkg/logging"
	"github.com/dd0wney/cluso-flowviz/pkg/metrics"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr     string
		maxTicks int
		maxBody  int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts and renders over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger := flags.logger()

			reg := metrics.DefaultRegistry()
			srv := newServer(*cfg, logger, reg)
			srv.maxTicks = maxTicks
			srv.maxBody = maxBody

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, addr, srv, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 3000, "upper bound on solver ticks per request")
	cmd.Flags().Int64Var(&maxBody, "max-body", defaultMaxBody, "maximum descriptor size in bytes")
	return cmd
}

func runServer(ctx context.Context, addr string, srv *server, logger logging.Logger) error {
	if srv.maxTicks < 1 {
		return fmt.Errorf("max-ticks must be positive, got %d", srv.maxTicks)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			srv.metrics.UpdateSystemMetrics(srv.started)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	srv.draining.Store(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
