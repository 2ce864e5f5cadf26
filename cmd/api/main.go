package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/example/grocery-shop/internal/api"
	"github.com/example/grocery-shop/internal/auth"
	"github.com/example/grocery-shop/internal/bootstrap"
	"github.com/example/grocery-shop/internal/command"
	"github.com/example/grocery-shop/internal/config"
	"github.com/example/grocery-shop/internal/domain/cart"
	"github.com/example/grocery-shop/internal/domain/inventory"
	"github.com/example/grocery-shop/internal/domain/order"
	"github.com/example/grocery-shop/internal/domain/product"
	"github.com/example/grocery-shop/internal/domain/purchase"
	"github.com/example/grocery-shop/internal/domain/user"
	"github.com/example/grocery-shop/internal/guestcart"
	"github.com/example/grocery-shop/internal/infrastructure/kafka"
	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/projection"
	"github.com/example/grocery-shop/internal/query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("[API] ========================================")
	log.Println("[API] Grocery Shop - CQRS API")
	log.Println("[API] ========================================")

	stores, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] %v", err)
	}
	defer stores.Close(context.Background())

	projector := projection.NewProjector(stores.ReadStore)

	// Events go to Kafka for the notifier and any external projector. The
	// in-memory event store is process-local and publishes nowhere else.
	var publisher store.Publisher
	var producer *kafka.Producer
	if cfg.EventStore == config.BackendPostgres {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		log.Printf("[API] Kafka: %v, topic: %s", cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	asyncProjection := producer != nil && !cfg.SyncProjection
	if !asyncProjection {
		publisher = projection.NewSyncPublisher(projector, publisher)
	}
	eventStore := stores.EventStore(publisher)

	// Rebuild read models that do not survive a restart
	if cfg.ReadStore == config.BackendMemory {
		log.Println("[API] Replaying events into the in-memory read store...")
		if err := projector.Replay(eventStore.GetAllEvents()); err != nil {
			log.Printf("[API] Replay stopped: %v", err)
		}
	}

	queryHandler := query.NewHandler(stores.ReadStore)
	cmdHandler := command.NewHandler(
		product.NewService(eventStore),
		cart.NewService(eventStore),
		order.NewService(eventStore),
		inventory.NewService(eventStore),
		purchase.NewService(eventStore),
		queryHandler,
	)
	userSvc := user.NewService(eventStore)
	if cfg.AdminEmail != "" {
		seedAdmin(ctx, userSvc, queryHandler, cfg.AdminEmail, cfg.AdminPassword)
	}
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)

	redisClient := guestcart.NewClient(cfg.RedisAddr, cfg.RedisPassword)
	defer redisClient.Close()
	guestCarts := guestcart.NewStore(redisClient, cfg.GuestCartTTL)

	handlers := api.NewHandlers(cmdHandler, queryHandler, guestCarts)
	for name, check := range stores.HealthChecks() {
		handlers.AddHealthCheck(name, check)
	}
	authHandlers := api.NewAuthHandlers(userSvc, jwtService, queryHandler, handlers)

	server := &http.Server{
		Addr: cfg.AppAddr,
		Handler: api.NewRouter(api.RouterConfig{
			Handlers:       handlers,
			AuthHandlers:   authHandlers,
			JWTService:     jwtService,
			CORSOrigins:    cfg.CORSOrigins,
			LoginRateLimit: cfg.LoginRateLimit,
			Production:     cfg.IsProduction(),
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if asyncProjection {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup)
		defer consumer.Close()
		g.Go(func() error {
			log.Printf("[API] Projecting asynchronously from Kafka (group %s)", cfg.KafkaGroup)
			if err := consumer.Consume(gctx, projector.HandleEvent); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Printf("[API] Server started on %s", cfg.AppAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("[API] Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("[API] Stopped with error: %v", err)
	}
	log.Println("[API] Stopped")
}

// seedAdmin registers the configured admin unless the email is already taken
func seedAdmin(ctx context.Context, users *user.Service, queries *query.Handler, email, password string) {
	_, err := queries.FindUserByEmail(email)
	if err == nil {
		return
	}
	if !errors.Is(err, query.ErrNotFound) {
		log.Printf("[API] Admin lookup failed: %v", err)
		return
	}
	admin, err := users.RegisterAdmin(ctx, email, password, "Administrator")
	if err != nil {
		log.Printf("[API] Failed to seed admin %s: %v", email, err)
		return
	}
	log.Printf("[API] Seeded admin %s (%s)", admin.Email, admin.ID)
}
