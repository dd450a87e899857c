package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"majorincome/internal/amqp"
	"majorincome/internal/backend"
	"majorincome/internal/cli"
	"majorincome/internal/config"
	apphttp "majorincome/internal/http"
	"majorincome/internal/log"
	"majorincome/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Serve statistics and charts over HTTP",
		Example: "  PORT=5000 majorincome serve",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := cli.Bootstrap()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(parent, logger)
	defer stop()

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backend.FromAppConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	srv := apphttp.NewServer(cfg.Addr(), res.Store, apphttp.Options{Logger: logger})

	if cfg.AMQPURL != "" {
		startRefreshConsumer(ctx, cfg, logger, srv)
	} else {
		logger.Info("AMQP disabled, caches expire by TTL only")
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err.Error())
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func startRefreshConsumer(ctx context.Context, cfg *config.Config, logger *log.Logger, srv *apphttp.Server) {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, caches expire by TTL only", log.FieldError, err.Error())
		return
	}
	refresh := worker.NewRefreshWorker(srv, logger)
	go func() {
		defer client.Close()
		if err := refresh.Run(ctx, client); err != nil {
			logger.Error("Refresh consumer stopped", log.FieldError, err.Error())
		}
	}()
}
