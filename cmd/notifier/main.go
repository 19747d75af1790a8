package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/marketflow/internal/config"
	"github.com/example/marketflow/internal/email"
	"github.com/example/marketflow/internal/infrastructure/kafka"
	"github.com/example/marketflow/internal/logging"
	"github.com/example/marketflow/internal/notification"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(logging.ExitCode(logger, "notifier stopped", run(cfg, logger)))
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if !cfg.KafkaEnabled() {
		return errors.New("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting marketflow notifier",
		zap.Strings("kafka", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.Group),
		zap.String("smtp", fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)))

	mailer := email.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	handler := notification.NewHandler(email.NewService(mailer), logger)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, logger)
	defer consumer.Close()

	// An unhandled message is left uncommitted; exiting lets the group
	// redeliver it after restart.
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}
