// Package bootstrap opens the stores selected by configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/example/grocery-shop/internal/config"
	"github.com/example/grocery-shop/internal/infrastructure/store"
)

// Stores holds the connections a process opened
type Stores struct {
	DB        *sql.DB
	Mongo     *mongo.Client
	ReadStore store.ReadStoreInterface

	eventBackend string
}

// Open connects to the configured backends and prepares the PostgreSQL schema
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{eventBackend: cfg.EventStore}

	if cfg.NeedsPostgres() {
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := store.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		s.DB = db
		log.Println("[Stores] Connected to PostgreSQL")
	}

	switch cfg.ReadStore {
	case config.BackendPostgres:
		s.ReadStore = store.NewPostgresReadStore(s.DB)
	case config.BackendMongo:
		client, err := store.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		s.Mongo = client
		s.ReadStore = store.NewMongoReadStore(client.Database(cfg.MongoDatabase))
	default:
		s.ReadStore = store.NewReadStore()
	}

	log.Printf("[Stores] Event store: %s, read store: %s", cfg.EventStore, cfg.ReadStore)
	return s, nil
}

// EventStore creates the configured event store publishing to publisher
func (s *Stores) EventStore(publisher store.Publisher) store.EventStoreInterface {
	if s.eventBackend == config.BackendPostgres {
		return store.NewPostgresEventStore(s.DB, publisher)
	}
	return store.NewEventStore(publisher)
}

// HealthChecks returns a ping per open connection
func (s *Stores) HealthChecks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if s.DB != nil {
		checks["postgres"] = s.DB.PingContext
	}
	if s.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error {
			return s.Mongo.Ping(ctx, nil)
		}
	}
	return checks
}

// Close releases every open connection
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	if s.Mongo != nil {
		errs = append(errs, s.Mongo.Disconnect(ctx))
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
