package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pizzabox/order-core/internal/config"
	kafkax "github.com/pizzabox/order-core/internal/kafka"
	"github.com/pizzabox/order-core/internal/logger"
	"github.com/pizzabox/order-core/internal/notify"
	"github.com/pizzabox/order-core/internal/orders"
	"github.com/pizzabox/order-core/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	h := notify.NewHandler(
		redisx.NewDedup(rdb, cfg.NotifierGroup),
		notify.LogSender{Log: log.Named("sender")},
		log.Named("notifier"),
	)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderLifecycle, cfg.NotifierWorkers, log.Named("kafka"))

	log.Info("notifier started",
		zap.String("group", cfg.NotifierGroup),
		zap.String("topic", orders.TopicOrderLifecycle),
		zap.Int("workers", cfg.NotifierWorkers))
	if err := cons.Start(ctx, h.HandleMessage); err != nil {
		log.Fatal("consumer exited", zap.Error(err))
	}
	log.Info("notifier stopped")
}
