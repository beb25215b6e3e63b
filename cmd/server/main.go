package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"dex-daydata/internal/api"
	"dex-daydata/internal/app"
	"dex-daydata/internal/config"
	"dex-daydata/internal/ingestion"
	"dex-daydata/internal/logging"
	"dex-daydata/internal/observability"
	"dex-daydata/internal/stream"
)

func main() {
	// Parse flags
	configPath := flag.String("config", os.Getenv("DEXDAY_CONFIG"), "YAML config file (optional)")
	httpAddr := flag.String("http-addr", "", "Override query API listen address")
	ingest := flag.Bool("ingest", false, "Also run the ingestion runner in this process (required for the memory backend)")
	migrate := flag.Bool("migrate", false, "Apply embedded migrations before starting")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *migrate {
		cfg.Storage.Migrate = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	base, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		MaxAge: cfg.Logging.MaxAge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(base, "server")

	if cfg.Storage.Backend == "memory" && !*ingest {
		logger.Warn("Memory backend without --ingest serves an always-empty store")
	}
	if !*ingest {
		logger.Info("Ingestion runs elsewhere, /aggregates/stream will stay idle")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, cfg, base, *ingest); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Shutdown complete")
}

// run serves the query API until ctx is cancelled or the in-process
// runner fails.
func run(ctx context.Context, cfg *config.Config, base *logrus.Logger, ingest bool) error {
	logger := logging.Component(base, "server")

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	// Live updates only flow when this process runs the ingestion runner.
	broadcaster := stream.NewBroadcaster(stream.Options{Logger: base})
	defer broadcaster.Close()

	opts := api.Options{
		Stores:  backend.Stores,
		Stream:  broadcaster,
		Backend: backend.Name,
		Logger:  base,
	}
	if backend.Cache != nil {
		opts.Cache = backend.Cache
	}
	if backend.History != nil {
		opts.History = backend.History
	}
	srv := api.New(opts)
	srv.Handle("/metrics", observability.Handler())

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Infof("Starting HTTP server on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if ingest {
		source, err := app.OpenSource(cfg)
		if err != nil {
			return err
		}
		defer source.Close()

		runner := ingestion.NewRunner(ingestion.RunnerOptions{
			Source:     source,
			Transactor: backend.Transactor,
			Sinks:      append(backend.Sinks, broadcaster),
			Logger:     base,
		})
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("ingestion: %w", err)
				return
			}
			logger.Info("Ingestion finished, query API keeps serving")
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	// Shutdown does not wait for hijacked websocket connections.
	broadcaster.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown incomplete")
	}
	return runErr
}
