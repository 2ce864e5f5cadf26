package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/example/grocery-shop/internal/bootstrap"
	"github.com/example/grocery-shop/internal/config"
	"github.com/example/grocery-shop/internal/infrastructure/kafka"
	"github.com/example/grocery-shop/internal/projection"
)

const consumerGroup = "projector"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Projector] Invalid configuration: %v", err)
	}
	if cfg.ReadStore == config.BackendMemory {
		log.Fatal("[Projector] READ_STORE must be postgres or mongo; an in-memory read store would be lost on exit")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("[Projector] ========================================")
	log.Println("[Projector] Grocery Shop - CQRS Projector")
	log.Println("[Projector] ========================================")
	log.Printf("[Projector] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Projector] Topic: %s", cfg.KafkaTopic)
	log.Printf("[Projector] Group: %s", consumerGroup)

	stores, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("[Projector] %v", err)
	}
	defer stores.Close(context.Background())

	projector := projection.NewProjector(stores.ReadStore)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup)
	defer consumer.Close()

	log.Println("[Projector] Starting event consumer...")
	if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
		log.Printf("[Projector] Consumer error: %v", err)
	}
	log.Println("[Projector] Shutting down...")
}
