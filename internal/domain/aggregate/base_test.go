package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/infrastructure/store/mocks"
)

type counted struct {
	By int `json:"by"`
}

type counter struct {
	ID      string `json:"id"`
	Total   int    `json:"total"`
	Version int    `json:"version"`
}

func (c *counter) GetID() string { return c.ID }
func (c *counter) GetVersion() int { return c.Version }
func (c *counter) SetVersion(v int) { c.Version = v }
func (c *counter) ApplyEvent(event store.Event) error {
	var e counted
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	c.ID = event.AggregateID
	c.Total += e.By
	c.Version = event.Version
	return nil
}

func newCounter() *counter { return &counter{} }

func TestLoadAggregate_NotFound(t *testing.T) {
	es := mocks.NewMockEventStore()

	_, found, err := LoadAggregate(context.Background(), es, "missing", newCounter)

	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadAggregate_ReplaysEvents(t *testing.T) {
	es := mocks.NewMockEventStore()
	require.NoError(t, es.AddEvent("c-1", "Counter", "Counted", counted{By: 2}))
	require.NoError(t, es.AddEvent("c-1", "Counter", "Counted", counted{By: 3}))

	c, found, err := LoadAggregate(context.Background(), es, "c-1", newCounter)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 5, c.Total)
	assert.Equal(t, 2, c.Version)
}

func TestCommit_SnapshotsAtThreshold(t *testing.T) {
	ctx := context.Background()
	es := mocks.NewMockEventStore()
	c := &counter{ID: "c-1"}

	for i := 0; i < store.SnapshotThreshold+2; i++ {
		require.NoError(t, Commit(ctx, es, c, "Counter", "Counted", counted{By: 1}))
	}

	require.Len(t, es.SaveSnapshotCalls, 1)
	assert.Equal(t, store.SnapshotThreshold, es.SaveSnapshotCalls[0].Version)

	// Loading starts from the snapshot and replays only the newer events
	loaded, found, err := LoadAggregate(ctx, es, "c-1", newCounter)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, store.SnapshotThreshold+2, loaded.Total)
	assert.Equal(t, store.SnapshotThreshold+2, loaded.Version)
}

func TestCommit_AppendError(t *testing.T) {
	es := mocks.NewMockEventStore()
	es.AppendErr = errors.New("conflict")
	c := &counter{ID: "c-1"}

	err := Commit(context.Background(), es, c, "Counter", "Counted", counted{By: 1})

	assert.EqualError(t, err, "conflict")
	assert.Equal(t, 0, c.Total)
}

func TestCommit_StaleAggregateConflicts(t *testing.T) {
	ctx := context.Background()
	es := mocks.NewMockEventStore()
	require.NoError(t, es.AddEvent("c-1", "Counter", "Counted", counted{By: 1}))

	stale, _, err := LoadAggregate(ctx, es, "c-1", newCounter)
	require.NoError(t, err)
	fresh, _, err := LoadAggregate(ctx, es, "c-1", newCounter)
	require.NoError(t, err)

	require.NoError(t, Commit(ctx, es, fresh, "Counter", "Counted", counted{By: 2}))
	err = Commit(ctx, es, stale, "Counter", "Counted", counted{By: 3})

	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Equal(t, 1, stale.Total)
	assert.Len(t, es.GetEvents("c-1"), 2)
}

func TestRetry_RerunsOnVersionConflict(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		if calls < 2 {
			return store.ErrVersionConflict
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_GivesUpAndKeepsOtherErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return store.ErrVersionConflict
	})
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Equal(t, MaxAttempts, calls)

	calls = 0
	boom := errors.New("boom")
	err = Retry(context.Background(), func() error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestCommit_SnapshotFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	es := mocks.NewMockEventStore()
	es.SnapshotErr = errors.New("snapshot store down")
	c := &counter{ID: "c-1"}

	for i := 0; i < store.SnapshotThreshold; i++ {
		require.NoError(t, Commit(ctx, es, c, "Counter", "Counted", counted{By: 1}))
	}

	assert.Len(t, es.SaveSnapshotCalls, 1)
	assert.Equal(t, store.SnapshotThreshold, c.Total)
}

func TestLoadAggregate_SnapshotError(t *testing.T) {
	es := mocks.NewMockEventStore()
	es.SnapshotErr = errors.New("boom")

	_, _, err := LoadAggregate(context.Background(), es, "c-1", newCounter)

	assert.ErrorContains(t, err, "failed to get snapshot")
}
