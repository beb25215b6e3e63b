package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"dex-daydata/internal/config"
	"dex-daydata/internal/ingestion"
	"dex-daydata/internal/logging"
)

func main() {
	// Parse flags
	configPath := flag.String("config", os.Getenv("DEXDAY_CONFIG"), "YAML config file (optional)")
	file := flag.String("file", "-", "JSON lines message log to replay (- for stdin)")
	brokers := flag.String("brokers", "", "Comma-separated Kafka brokers (overrides config)")
	topic := flag.String("topic", "", "Kafka topic (overrides config)")
	batchSize := flag.Int("batch-size", 500, "Messages per Kafka write")
	strict := flag.Bool("strict", false, "Fail on invalid or out-of-order messages instead of dropping them")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *brokers != "" {
		cfg.Source.Kafka.Brokers = strings.Split(*brokers, ",")
	}
	if *topic != "" {
		cfg.Source.Kafka.Topic = *topic
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
	logger := logging.Component(base, "replay")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, err := ingestion.NewFileSource(*file)
	if err != nil {
		logger.WithError(err).Fatal("Open input")
	}
	defer source.Close()

	publisher, err := ingestion.NewKafkaPublisher(ingestion.KafkaOptions{
		Brokers: cfg.Source.Kafka.Brokers,
		Topic:   cfg.Source.Kafka.Topic,
	})
	if err != nil {
		logger.WithError(err).Fatal("Create Kafka publisher")
	}
	defer publisher.Close()

	replayer := ingestion.NewReplayer(ingestion.ReplayerOptions{
		Source:    source,
		Publisher: publisher,
		BatchSize: *batchSize,
		Strict:    *strict,
		Logger:    base,
	})

	logger.WithFields(logrus.Fields{
		"file":  *file,
		"topic": cfg.Source.Kafka.Topic,
	}).Info("Replaying message log")

	if _, err := replayer.Replay(ctx); err != nil {
		logger.WithError(err).Fatal("Replay failed")
	}
}
