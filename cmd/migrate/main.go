package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pizzabox/order-core/internal/config"
	"github.com/pizzabox/order-core/internal/logger"
	"github.com/pizzabox/order-core/internal/postgres"
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: 1, MinConns: 1})
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	log.Info("schema up to date")
}
