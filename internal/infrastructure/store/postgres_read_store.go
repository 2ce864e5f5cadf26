package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/grocery-shop/internal/readmodel"
)

const queryTimeout = 5 * time.Second

// PostgresReadStore implements ReadStoreInterface on a single JSONB table
type PostgresReadStore struct {
	db *sql.DB
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return rs.upsert(ctx, rs.db, collection, id, data)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (rs *PostgresReadStore) upsert(ctx context.Context, db execer, collection, id string, data any) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, id, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO read_models (collection, id, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, doc,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var doc []byte
	err := rs.db.QueryRowContext(ctx,
		"SELECT data FROM read_models WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	model, err := readmodel.Decode(collection, doc)
	if err != nil {
		return nil, false, err
	}
	return model, true, nil
}

// GetAll retrieves all items in a collection ordered by id
func (rs *PostgresReadStore) GetAll(collection string) ([]any, error) {
	return rs.query(collection,
		"SELECT data FROM read_models WHERE collection = $1 ORDER BY id",
		collection,
	)
}

// FindBy returns the items whose top-level JSON field equals value
func (rs *PostgresReadStore) FindBy(collection, field, value string) ([]any, error) {
	return rs.query(collection,
		"SELECT data FROM read_models WHERE collection = $1 AND data->>$2 = $3 ORDER BY id",
		collection, field, value,
	)
}

func (rs *PostgresReadStore) query(collection, query string, args ...any) ([]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := rs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []any{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		model, err := readmodel.Decode(collection, doc)
		if err != nil {
			return nil, err
		}
		items = append(items, model)
	}
	return items, rows.Err()
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := rs.db.ExecContext(ctx,
		"DELETE FROM read_models WHERE collection = $1 AND id = $2",
		collection, id,
	)
	return err
}

// Update modifies a read model inside a transaction holding the row lock
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM read_models WHERE collection = $1 AND id = $2 FOR UPDATE",
		collection, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	current, err := readmodel.Decode(collection, doc)
	if err != nil {
		return false, err
	}
	if err := rs.upsert(ctx, tx, collection, id, updateFn(current)); err != nil {
		return false, err
	}
	return true, tx.Commit()
}
