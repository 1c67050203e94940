package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/campusrun/orders/internal/config"
	kafkax "github.com/campusrun/orders/internal/kafka"
	"github.com/campusrun/orders/internal/orders"
	"github.com/campusrun/orders/internal/postgres"
	"github.com/campusrun/orders/internal/redisx"
	"github.com/campusrun/orders/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &worker.Service{
		Store:       &orders.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	group := getenv("WORKER_GROUP", "order-lifecycle-worker")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), 8)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderLifecycle, workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Printf("lifecycle consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderLifecycle, workers)
		if err := cons.Start(ctx, svc.HandleLifecycleEvent); err != nil {
			log.Printf("consumer exit: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down consumer...")
		cancel()
		<-done
	case <-done:
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
