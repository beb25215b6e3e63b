package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"dex-daydata/internal/app"
	"dex-daydata/internal/config"
	"dex-daydata/internal/ingestion"
	"dex-daydata/internal/logging"
	"dex-daydata/internal/observability"
)

func main() {
	// Parse flags
	configPath := flag.String("config", os.Getenv("DEXDAY_CONFIG"), "YAML config file (optional)")
	source := flag.String("source", "", "Override source kind: kafka or file")
	file := flag.String("file", "", "Override JSON lines input file (- for stdin)")
	backend := flag.String("backend", "", "Override storage backend: memory or postgres")
	migrate := flag.Bool("migrate", false, "Apply embedded migrations before starting")
	sinkTimeout := flag.Duration("sink-timeout", 5*time.Second, "Timeout for each snapshot sink publish")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *source != "" {
		cfg.Source.Kind = *source
	}
	if *file != "" {
		cfg.Source.File = *file
		if *source == "" {
			cfg.Source.Kind = "file"
		}
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *migrate {
		cfg.Storage.Migrate = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
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
	logger := logging.Component(base, "ingest")

	// Start metrics server if enabled
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Infof("Starting metrics server on %s", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Metrics server error")
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warnf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, base, *sinkTimeout)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.WithError(err).Fatal("Ingestion failed")
	}

	logger.Info("Shutdown complete")
}

// run opens the backend and source and aggregates until the source is
// exhausted or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, base *logrus.Logger, sinkTimeout time.Duration) error {
	logger := logging.Component(base, "ingest")

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	source, err := app.OpenSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:      source,
		Transactor:  backend.Transactor,
		Sinks:       backend.Sinks,
		SinkTimeout: sinkTimeout,
		Logger:      base,
	})

	logger.WithFields(logrus.Fields{
		"source":  cfg.Source.Kind,
		"backend": backend.Name,
		"sinks":   len(backend.Sinks),
	}).Info("Starting ingestion...")

	if err := runner.Run(ctx); err != nil {
		return err
	}

	stats := runner.Stats()
	logger.WithFields(logrus.Fields{
		"messages": stats.Messages,
		"events":   stats.Events,
		"changes":  stats.Changes,
		"skipped":  stats.Skipped,
	}).Info("Ingestion complete")
	return nil
}
