package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/campusrun/orders/internal/claim"
	"github.com/campusrun/orders/internal/config"
	"github.com/campusrun/orders/internal/httpx"
	kafkax "github.com/campusrun/orders/internal/kafka"
	"github.com/campusrun/orders/internal/notify"
	"github.com/campusrun/orders/internal/orders"
	"github.com/campusrun/orders/internal/postgres"
	"github.com/campusrun/orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	// Redis: snapshot cache + notifier transport
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for the lifecycle event log
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 1024)
	prod.Start(ctx)

	// Notifier bridge: Redis channel -> local hub
	notifier := notify.New(rdb)
	go func() {
		if err := notifier.Run(ctx); err != nil {
			log.Printf("notifier: %v", err)
		}
	}()

	repo := &orders.Repo{DB: db}
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Store:            repo,
		Catalog:          repo,
		Claims:           &claim.Coordinator{Store: repo},
		Notifier:         notifier,
		Producer:         prod,
		Redis:            rdb,
		Service:          cfg.ServiceName,
		DeliveryFeeCents: cfg.DeliveryFeeCents,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // closes the inbox, the drain goroutine flushes the rest
	cancel()
	prod.WaitClosed()
}
