package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.keys = append(p.keys, key)
	return p.err
}

func TestEventStore_AppendAssignsVersions(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()

	first, err := es.Append(ctx, "cart-1", "Cart", "ItemAddedToCart", map[string]int{"quantity": 1})
	require.NoError(t, err)
	second, err := es.Append(ctx, "cart-1", "Cart", "CartCleared", map[string]int{})
	require.NoError(t, err)
	other, err := es.Append(ctx, "cart-2", "Cart", "CartCleared", map[string]int{})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 1, other.Version)
	assert.Len(t, es.GetEvents("cart-1"), 2)
	assert.Len(t, es.GetAllEvents(), 3)
}

func TestEventStore_AppendExpectedRejectsStaleVersion(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()

	_, err := es.AppendExpected(ctx, "inv-1", "Inventory", "StockAdded", map[string]int{"quantity": 5}, 0)
	require.NoError(t, err)

	// A second writer that also loaded version 0 loses
	_, err = es.AppendExpected(ctx, "inv-1", "Inventory", "StockReserved", map[string]int{"quantity": 5}, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Len(t, es.GetEvents("inv-1"), 1)

	event, err := es.AppendExpected(ctx, "inv-1", "Inventory", "StockReserved", map[string]int{"quantity": 5}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, event.Version)
}

func TestEventStore_PublishesAppendedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	es := NewEventStore(pub)

	_, err := es.Append(context.Background(), "product-1", "Product", "ProductCreated", map[string]string{"name": "Milk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"product-1"}, pub.keys)
}

func TestEventStore_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	es := NewEventStore(pub)

	_, err := es.Append(context.Background(), "product-1", "Product", "ProductCreated", nil)
	assert.EqualError(t, err, "broker down")
}

func TestEventStore_GetEventsFromVersion(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := es.Append(ctx, "inv-1", "Inventory", "StockAdded", map[string]int{"quantity": i})
		require.NoError(t, err)
	}

	events := es.GetEventsFromVersion(ctx, "inv-1", 3)
	require.Len(t, events, 2)
	assert.Equal(t, 4, events[0].Version)
	assert.Equal(t, 5, events[1].Version)
}

func TestEventStore_GetEventsReturnsCopy(t *testing.T) {
	es := NewEventStore(nil)
	_, err := es.Append(context.Background(), "cart-1", "Cart", "CartCleared", nil)
	require.NoError(t, err)

	events := es.GetEvents("cart-1")
	events[0].EventType = "Tampered"
	assert.Equal(t, "CartCleared", es.GetEvents("cart-1")[0].EventType)
}

func TestEventStore_Snapshots(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()

	snapshot, err := es.GetSnapshot(ctx, "order-1")
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	state, err := json.Marshal(map[string]string{"status": "paid"})
	require.NoError(t, err)
	require.NoError(t, es.SaveSnapshot(ctx, &Snapshot{
		AggregateID:   "order-1",
		AggregateType: "Order",
		Version:       SnapshotThreshold,
		State:         state,
		CreatedAt:     time.Now(),
	}))

	snapshot, err = es.GetSnapshot(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, SnapshotThreshold, snapshot.Version)
	assert.JSONEq(t, `{"status":"paid"}`, string(snapshot.State))
}

func TestEvent_MarshalJSON(t *testing.T) {
	event := Event{
		ID:            "e-1",
		AggregateID:   "cart-1",
		AggregateType: "Cart",
		EventType:     "CartCleared",
		Data:          json.RawMessage(`{"user_id":"u-1"}`),
		Version:       1,
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, event.AggregateID, decoded.AggregateID)
	assert.JSONEq(t, `{"user_id":"u-1"}`, string(decoded.Data))
}
