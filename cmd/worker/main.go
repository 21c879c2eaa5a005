// Worker archives intake events from Kafka in Loki.
// Requires KAFKA_BROKERS and LOKI_URL; INTAKE_KAFKA_TOPIC and KAFKA_GROUP_ID have defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"recruit-intake/internal/config"
	"recruit-intake/internal/events"
	"recruit-intake/internal/events/loki"
	"recruit-intake/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("worker: KAFKA_BROKERS is required")
	}
	archive, err := loki.NewClient(cfg.LokiURL, nil)
	if err != nil {
		logger.Fatal("worker: LOKI_URL is required", zap.Error(err))
	}

	reader := events.NewKafkaReader(brokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker: consuming",
		zap.String("topic", cfg.KafkaTopic), zap.String("group", cfg.KafkaGroupID), zap.String("loki", cfg.LokiURL))
	n := events.Consume(ctx, reader, archive.PushEventJSON, logger)
	logger.Info("worker: stopped", zap.Int("archived", n))
}
