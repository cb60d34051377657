package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-quality/internal/api"
	"github.com/miradorstack/mirador-quality/internal/engine"
	"github.com/miradorstack/mirador-quality/internal/metrics"
	"github.com/miradorstack/mirador-quality/internal/models"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled orchestration cycles with gRPC health and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(parent context.Context) error {
	cfg, logger := c.cfg, c.logger
	logger.Info("starting mirador-quality",
		slog.String("address", cfg.Server.Address),
		slog.Duration("interval", cfg.Orchestrator.Interval),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	server, err := api.NewServer(cfg.Server)
	if err != nil {
		return err
	}
	rt.components.Observers = append(rt.components.Observers, server.Health())

	controller, err := engine.NewController(logger, rt.components, rt.options)
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	grpcDone := make(chan struct{})
	go func() {
		defer close(grpcDone)
		if serveErr := server.Run(ctx); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	if err := controller.Start(ctx); err != nil {
		logger.Error("orchestration failed to start", slog.Any("error", err))
		stop()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := controller.Stop(shutdownCtx); err != nil && !errors.Is(err, models.ErrNotActive) {
		logger.Warn("controller stop", slog.Any("error", err))
	}
	select {
	case <-grpcDone:
	case <-shutdownCtx.Done():
		logger.Warn("gRPC server shutdown timed out")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
	}

	logger.Info("mirador-quality stopped")
	return nil
}
