package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/example/grocery-shop/internal/bootstrap"
	"github.com/example/grocery-shop/internal/config"
	"github.com/example/grocery-shop/internal/email"
	"github.com/example/grocery-shop/internal/infrastructure/kafka"
	"github.com/example/grocery-shop/internal/notification"
)

// Dedicated consumer group for email notifications
const consumerGroup = "email-notifier"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Notifier] Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Grocery Shop - Email Notification Service")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Notifier] Topic: %s", cfg.KafkaTopic)
	log.Printf("[Notifier] Group: %s", consumerGroup)
	log.Printf("[Notifier] SMTP: %s", cfg.SMTPAddr())
	log.Printf("[Notifier] From: %s", cfg.SMTPFrom)
	log.Printf("[Notifier] Stock alerts to: %s", cfg.AlertEmail)

	// The read store supplies customer and product details
	stores, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("[Notifier] %v", err)
	}
	defer stores.Close(context.Background())

	emailSvc := email.NewService(cfg.SMTPAddr(), cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, stores.ReadStore, cfg.AlertEmail)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup)
	defer consumer.Close()

	log.Println("[Notifier] Starting event consumer...")
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Printf("[Notifier] Consumer error: %v", err)
	}
	log.Println("[Notifier] Shutting down...")
}
