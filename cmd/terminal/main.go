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

	"github.com/cafepos/terminal/internal/catalog"
	"github.com/cafepos/terminal/internal/config"
	"github.com/cafepos/terminal/internal/httpx"
	kafkax "github.com/cafepos/terminal/internal/kafka"
	"github.com/cafepos/terminal/internal/order"
	"github.com/cafepos/terminal/internal/postgres"
	"github.com/cafepos/terminal/internal/redisx"
	"github.com/cafepos/terminal/internal/store"
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

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for OrderPlaced fanout
	prod := kafkax.NewProducer(cfg.KafkaBrokers, order.TopicOrderPlaced, 1024)
	prod.Start(ctx)

	// Stores
	catalogStore := &store.CatalogPG{DB: db, Redis: rdb}
	orderLog := &store.OrderLogPG{DB: db, Redis: rdb, Producer: prod, Service: cfg.ServiceName}

	// Catalog cache: one long-lived feed for the whole process
	cache := catalog.NewCache(catalogStore)
	if err := cache.Start(ctx); err != nil {
		log.Fatalf("catalog cache: %v", err)
	}
	defer cache.Stop()

	// Order history feed
	feed := order.NewHistoryFeed(orderLog)
	if err := feed.Start(ctx); err != nil {
		log.Fatalf("history feed: %v", err)
	}
	defer feed.Stop()

	// degraded feeds are logged, not fatal; stale data keeps serving
	go func() {
		for {
			select {
			case err := <-cache.Degraded():
				log.Printf("catalog feed degraded: %v", err)
			case err := <-feed.Degraded():
				log.Printf("order feed degraded: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP
	router := httpx.NewRouter()
	ph := &httpx.POSHandler{
		Cache:     cache,
		Feed:      feed,
		Submitter: &order.Submitter{Log: orderLog},
		Admin:     catalogStore,
	}
	ph.Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cache.Stop()
	feed.Stop()
	prod.Close()
	cancel()
	prod.WaitClosed()
}
