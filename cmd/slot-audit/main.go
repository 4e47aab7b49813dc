package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkly/internal/parking/events"
	"parkly/pkg/config"
	"parkly/pkg/kafka"
	kafka_config "parkly/pkg/kafka/config"
	kafka_middleware "parkly/pkg/kafka/middleware"
)

const (
	ServiceName     = "slot-audit"
	metricsInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting slot audit consumer")

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.EventsTopic, kafkaCfg.AuditGroupID, cfg.EventsDLQTopic, events.AuditHandler(cfg.Log), cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	consumer.Use(metrics.ConsumerMiddleware())
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportMetrics(ctx, cfg, metrics)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	logMetrics(cfg, metrics)
	cfg.Log.Info("Slot audit consumer stopped")
}

func reportMetrics(ctx context.Context, cfg *config.Config, metrics *kafka_middleware.Metrics) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logMetrics(cfg, metrics)
		case <-ctx.Done():
			return
		}
	}
}

func logMetrics(cfg *config.Config, metrics *kafka_middleware.Metrics) {
	snap := metrics.Snapshot()
	cfg.Log.Info("Slot audit metrics",
		"consumed", snap.Consumed,
		"consume_failed", snap.ConsumeFailed,
		"avg_consume_ms", snap.AvgConsumeDuration.Milliseconds(),
	)
}
