package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cafepos/terminal/internal/config"
	kafkax "github.com/cafepos/terminal/internal/kafka"
	"github.com/cafepos/terminal/internal/order"
	"github.com/cafepos/terminal/internal/projector"
	"github.com/cafepos/terminal/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-projector",
	}

	group := getenv("PROJECTOR_GROUP", "pos-projector")
	workers := mustAtoi(os.Getenv("PROJECTOR_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, order.TopicOrderPlaced, workers)

	go func() {
		log.Printf("projector started: group=%s topic=%s workers=%d", group, order.TopicOrderPlaced, workers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down projector...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
