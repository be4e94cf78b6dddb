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
	"github.com/pizzabox/order-core/internal/postgres"
	"github.com/pizzabox/order-core/internal/redisx"
)

// activator moves due SCHEDULED orders into the kitchen queue.
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

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// order read cache shared with the api
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 256, log.Named("kafka"))
	prod.Start()
	defer prod.Close()

	svc, err := orders.NewService(orders.ServiceDeps{
		Store:          orders.NewPGStore(db),
		Notifier:       notify.NewDispatcher(prod, cfg.ServiceName+"-activator", log.Named("notify")),
		Cache:          redisx.NewStatusCache(rdb),
		Logger:         log.Named("activator"),
		GSTRate:        &cfg.GSTRatePercent,
		Location:       cfg.StoreLocation,
		ActivationLead: cfg.ActivationLead,
	})
	if err != nil {
		log.Fatal("build service", zap.Error(err))
	}

	log.Info("activator started",
		zap.Duration("interval", cfg.ActivationInterval),
		zap.Duration("lead", cfg.ActivationLead))
	_ = svc.RunActivator(ctx, cfg.ActivationInterval)
	log.Info("activator stopped")
}
