// Package guestcart keeps anonymous carts in Redis, one key per cart session.
package guestcart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/grocery-shop/internal/cartsync"
)

const keyPrefix = "guestcart:"

// DefaultTTL is how long an untouched guest cart is kept
const DefaultTTL = 30 * 24 * time.Hour

var ErrInvalidSession = errors.New("invalid cart session")

// Store hands out per-session guest carts
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient creates a Redis client for the guest cart store
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
		Protocol: 2,
	})
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Session returns the guest cart of a cart session
func (s *Store) Session(sessionID string) (*SessionCart, error) {
	if sessionID == "" || len(sessionID) > 128 {
		return nil, ErrInvalidSession
	}
	return &SessionCart{store: s, key: keyPrefix + sessionID}, nil
}

// Ping checks the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SessionCart implements cartsync.LocalStore for one cart session
type SessionCart struct {
	store *Store
	key   string
}

var _ cartsync.LocalStore = (*SessionCart)(nil)

func (c *SessionCart) Load(ctx context.Context) ([]cartsync.Item, error) {
	raw, err := c.store.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []cartsync.Item{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []cartsync.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return items, nil
}

// Save replaces the cart and refreshes its expiry. An empty cart deletes the key.
func (c *SessionCart) Save(ctx context.Context, items []cartsync.Item) error {
	if len(items) == 0 {
		return c.Clear(ctx)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.store.client.Set(ctx, c.key, raw, c.store.ttl).Err()
}

func (c *SessionCart) Clear(ctx context.Context) error {
	return c.store.client.Del(ctx, c.key).Err()
}
