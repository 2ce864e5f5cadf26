package projection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-shop/internal/domain/product"
	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/readmodel"
)

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.keys = append(p.keys, key)
	return p.err
}

func TestSyncPublisher_ProjectsBeforeAppendReturns(t *testing.T) {
	projector, rs := newTestProjector()
	next := &recordingPublisher{}
	es := store.NewEventStore(NewSyncPublisher(projector, next))

	_, err := es.Append(context.Background(), "prod-1", product.AggregateType, product.EventProductCreated, product.ProductCreated{
		ProductID: "prod-1",
		Name:      "Rice",
		Units:     riceUnits,
	})
	require.NoError(t, err)

	p := getProduct(t, rs, "prod-1")
	assert.Equal(t, "Rice", p.Name)
	assert.Equal(t, []string{"prod-1"}, next.keys)
}

func TestSyncPublisher_ForwardsErrorsFromNext(t *testing.T) {
	projector, _ := newTestProjector()
	next := &recordingPublisher{err: errors.New("broker down")}
	pub := NewSyncPublisher(projector, next)

	event := makeStoredEvent(product.AggregateType, product.EventProductDeleted, 1, product.ProductDeleted{ProductID: "prod-1"})
	err := pub.Publish(context.Background(), "prod-1", &event)
	assert.EqualError(t, err, "broker down")
}

func TestSyncPublisher_ProjectionFailureDoesNotFailAppend(t *testing.T) {
	projector, rs := newTestProjector()
	rs.Err = errors.New("read store down")
	pub := NewSyncPublisher(projector, nil)

	event := makeStoredEvent(product.AggregateType, product.EventProductCreated, 1, product.ProductCreated{
		ProductID: "prod-1",
		Name:      "Rice",
		Units:     riceUnits,
	})
	assert.NoError(t, pub.Publish(context.Background(), "prod-1", event))

	rs.Err = nil
	_, ok := rs.GetData(readmodel.Products, "prod-1")
	assert.False(t, ok)
}
