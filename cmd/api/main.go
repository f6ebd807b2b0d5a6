package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/ariefcatur/go-storefront-orders/internal/stripex"
	"github.com/ariefcatur/go-storefront-orders/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Error("catalog", "err", err)
		os.Exit(1)
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.StoreURL, cfg.StoreWriteKey)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	stripeClient := stripex.New(cfg.StripeSecretKey, stripex.Options{Log: log})

	fin := &orders.Finalizer{
		LineItems: stripeClient,
		Store:     &orders.Repo{DB: db},
		Log:       log,
	}

	// Redis (optional fast path)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		fin.Marker = &redisx.Marker{Redis: rdb}
	}

	// Kafka producers (optional alert channel); log alert selalu aktif
	notifiers := orders.Multi{orders.LogNotifier{Log: log}}
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		pDone := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderFinalized, 1024, log)
		pFail := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicFinalizationFailed, 1024, log)
		pDone.Start(ctx)
		pFail.Start(ctx)
		producers = append(producers, pDone, pFail)
		notifiers = append(notifiers, &orders.KafkaNotifier{Finalized: pDone, Failed: pFail, Service: cfg.ServiceName})
	}
	fin.Notifier = notifiers

	router := httpx.NewRouter()
	sf := &httpx.StorefrontHandler{
		Catalog:  cat,
		Checkout: &checkout.Initiator{Catalog: cat, Sessions: stripeClient, Log: log},
		BaseURL:  cfg.BaseURL,
		Log:      log,
	}
	wh := &httpx.WebhookHandler{
		Verifier: &webhook.Verifier{
			Secret:           cfg.StripeWebhookSecret,
			Tolerance:        cfg.WebhookTolerance,
			StrictAPIVersion: cfg.StrictAPIVersion,
		},
		Events: fin,
		Log:    log,
	}
	httpx.Mount(router, func(r chi.Router) {
		sf.Register(r)
		wh.Register(r)
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr, "products", cat.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		// handler yang masih jalan bisa publish setelah producer ditutup; pesan di-drop & di-log
		log.Warn("http shutdown incomplete", "err", err)
	}
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	cancel()
}
