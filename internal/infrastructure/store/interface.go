package store

import (
	"context"
	"errors"
)

// ErrVersionConflict means another writer appended to the aggregate since it was loaded
var ErrVersionConflict = errors.New("aggregate version conflict")

// AnyVersion disables the expected version check of AppendExpected
const AnyVersion = -1

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	// AppendExpected appends only when the aggregate is still at expectedVersion
	AppendExpected(ctx context.Context, aggregateID, aggregateType, eventType string, data any, expectedVersion int) (*Event, error)
	GetEvents(aggregateID string) []Event
	GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) []Event
	GetAllEvents() []Event
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}

// Publisher forwards stored events to the event bus
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// ReadStoreInterface defines the interface for read model storage.
// Collections and their model types are registered in the readmodel package.
type ReadStoreInterface interface {
	// Set stores a read model
	Set(collection, id string, data any) error

	// Get retrieves a read model by id
	Get(collection, id string) (any, bool, error)

	// GetAll retrieves all items in a collection
	GetAll(collection string) ([]any, error)

	// FindBy returns the items of a collection whose JSON field equals value
	FindBy(collection, field, value string) ([]any, error)

	// Delete removes a read model
	Delete(collection, id string) error

	// Update modifies a read model using an update function
	Update(collection, id string, updateFn func(current any) any) (bool, error)
}
