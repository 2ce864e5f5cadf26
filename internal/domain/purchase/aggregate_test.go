package purchase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-shop/internal/infrastructure/store/mocks"
)

func newTestPurchaseService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	return NewService(eventStore), eventStore
}

func sampleLines() []Line {
	return []Line{
		{ProductID: "prod-1", UnitType: "kg", Quantity: 50, CostPrice: 120},
		{ProductID: "prod-2", UnitType: "bag", Quantity: 10, CostPrice: 800},
	}
}

func TestService_Create(t *testing.T) {
	service, eventStore := newTestPurchaseService()

	po, err := service.Create(context.Background(), "Green Farms", sampleLines())

	require.NoError(t, err)
	assert.Equal(t, StatusOpen, po.Status)
	assert.Equal(t, 14000, po.TotalCost)
	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventPurchaseOrderCreated, eventStore.AppendCalls[0].EventType)
}

func TestService_Create_Validation(t *testing.T) {
	service, _ := newTestPurchaseService()
	ctx := context.Background()

	_, err := service.Create(ctx, "", sampleLines())
	assert.ErrorIs(t, err, ErrInvalidSupplier)

	_, err = service.Create(ctx, "Green Farms", nil)
	assert.ErrorIs(t, err, ErrNoLines)

	_, err = service.Create(ctx, "Green Farms", []Line{{ProductID: "prod-1", UnitType: "kg", Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidLine)
}

func TestService_ReceiveOnce(t *testing.T) {
	service, _ := newTestPurchaseService()
	ctx := context.Background()
	po, err := service.Create(ctx, "Green Farms", sampleLines())
	require.NoError(t, err)

	received, err := service.Receive(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	assert.False(t, received.ReceivedAt.IsZero())

	_, err = service.Receive(ctx, po.ID)
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = service.Cancel(ctx, po.ID, "late")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestService_Cancel(t *testing.T) {
	service, _ := newTestPurchaseService()
	ctx := context.Background()
	po, err := service.Create(ctx, "Green Farms", sampleLines())
	require.NoError(t, err)

	cancelled, err := service.Cancel(ctx, po.ID, "supplier closed")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = service.Receive(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
