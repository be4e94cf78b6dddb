package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pizzabox/order-core/internal/config"
	"github.com/pizzabox/order-core/internal/httpx"
	kafkax "github.com/pizzabox/order-core/internal/kafka"
	"github.com/pizzabox/order-core/internal/logger"
	"github.com/pizzabox/order-core/internal/memstore"
	"github.com/pizzabox/order-core/internal/notify"
	"github.com/pizzabox/order-core/internal/orders"
	"github.com/pizzabox/order-core/internal/postgres"
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

	if err := run(cfg, log); err != nil {
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store orders.Store
	switch cfg.Storage {
	case config.StorageMemory:
		mem := memstore.New()
		memstore.SeedDemo(mem)
		store = mem
		log.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.DefaultPoolOptions)
		if err != nil {
			return err
		}
		defer db.Close()
		store = orders.NewPGStore(db)
	}

	var payments *orders.PaymentVerifier
	if cfg.PaymentKeySecret != "" {
		v, err := orders.NewPaymentVerifier(cfg.PaymentKeySecret)
		if err != nil {
			return err
		}
		payments = v
	} else {
		log.Warn("PAYMENT_KEY_SECRET not set; online payments will be rejected")
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := redisx.NewStatusCache(rdb)

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 1024, log.Named("kafka"))
	prod.Start()
	defer prod.Close() // flush buffered notifications

	svc, err := orders.NewService(orders.ServiceDeps{
		Store:          store,
		Payments:       payments,
		Notifier:       notify.NewDispatcher(prod, cfg.ServiceName, log.Named("notify")),
		Cache:          cache,
		Logger:         log.Named("orders"),
		GSTRate:        &cfg.GSTRatePercent,
		Location:       cfg.StoreLocation,
		ActivationLead: cfg.ActivationLead,
	})
	if err != nil {
		return err
	}

	router := httpx.NewRouter(log)
	oh := &httpx.OrdersHandler{
		Service:     svc,
		Idempotency: redisx.NewIdempotency(rdb),
		Cache:       cache,
		Production:  cfg.Production(),
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
