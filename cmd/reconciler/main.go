package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/reconcile"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/ariefcatur/go-storefront-orders/internal/stripex"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-reconciler"
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", service)

	if cfg.StripeSecretKey == "" || len(cfg.KafkaBrokers) == 0 {
		log.Error("STRIPE_SECRET_KEY and KAFKA_BROKERS are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.StoreURL, cfg.StoreWriteKey)
	if err != nil {
		log.Error("db", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	stripeClient := stripex.New(cfg.StripeSecretKey, stripex.Options{Log: log})

	// Log-only notifier: gagal lagi tidak di-publish ulang ke topic yang sama.
	svc := &reconcile.Service{
		Sessions: stripeClient,
		Finalizer: &orders.Finalizer{
			LineItems: stripeClient,
			Store:     &orders.Repo{DB: db},
			Notifier:  orders.LogNotifier{Log: log},
			Log:       log,
		},
		ServiceName: service,
		Log:         log,
	}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Redis = rdb
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcilerGroup, orders.TopicFinalizationFailed, cfg.ReconcilerWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("reconciler started", "group", cfg.ReconcilerGroup, "topic", orders.TopicFinalizationFailed, "workers", cfg.ReconcilerWorkers)
		if err := cons.Start(ctx, svc.HandleFinalizationFailed); err != nil {
			log.Error("consumer exit", "err", err)
		}
		cancel()
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer...")
	case <-ctx.Done():
	}
	cancel()
	<-done
}
