package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/infrastructure/store/mocks"
)

func newTestInventoryService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	return NewService(eventStore), eventStore
}

func TestID(t *testing.T) {
	assert.Equal(t, "prod-1:5kg", ID("prod-1", "5kg"))
}

func TestService_AddStock(t *testing.T) {
	service, eventStore := newTestInventoryService()
	ctx := context.Background()

	require.NoError(t, service.AddStock(ctx, "prod-1", "5kg", 20, "initial"))

	require.Len(t, eventStore.AppendCalls, 1)
	call := eventStore.AppendCalls[0]
	assert.Equal(t, "prod-1:5kg", call.AggregateID)
	assert.Equal(t, EventStockAdded, call.EventType)

	data := call.Data.(StockAdded)
	assert.Equal(t, 0, data.AvailableBefore)
	assert.Equal(t, 20, data.AvailableAfter)
	assert.Equal(t, "initial", data.Reference)

	inv, err := service.Get(ctx, "prod-1", "5kg")
	require.NoError(t, err)
	assert.Equal(t, 20, inv.TotalStock)
	assert.Equal(t, 20, inv.AvailableStock())
}

func TestService_AddStock_InvalidQuantity(t *testing.T) {
	service, _ := newTestInventoryService()

	assert.ErrorIs(t, service.AddStock(context.Background(), "prod-1", "5kg", 0, ""), ErrInvalidQuantity)
}

func TestService_ReserveReleaseDeduct(t *testing.T) {
	service, eventStore := newTestInventoryService()
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "prod-1", "kg", 10, "initial"))

	require.NoError(t, service.Reserve(ctx, "prod-1", "kg", "order-1", 6))
	reserved := eventStore.AppendCalls[1].Data.(StockReserved)
	assert.Equal(t, 10, reserved.AvailableBefore)
	assert.Equal(t, 4, reserved.AvailableAfter)

	require.NoError(t, service.Release(ctx, "prod-1", "kg", "order-1", 2))
	released := eventStore.AppendCalls[2].Data.(StockReleased)
	assert.Equal(t, 6, released.AvailableAfter)

	require.NoError(t, service.Deduct(ctx, "prod-1", "kg", "order-1", 4))
	deducted := eventStore.AppendCalls[3].Data.(StockDeducted)
	assert.Equal(t, deducted.AvailableBefore, deducted.AvailableAfter)

	inv, err := service.Get(ctx, "prod-1", "kg")
	require.NoError(t, err)
	assert.Equal(t, 6, inv.TotalStock)
	assert.Equal(t, 0, inv.ReservedStock)
	assert.Equal(t, 6, inv.AvailableStock())
}

func TestService_Reserve_Insufficient(t *testing.T) {
	service, eventStore := newTestInventoryService()
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "prod-1", "kg", 3, ""))

	err := service.Reserve(ctx, "prod-1", "kg", "order-1", 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Len(t, eventStore.AppendCalls, 1)
}

func TestService_Release_MoreThanReserved(t *testing.T) {
	service, _ := newTestInventoryService()
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "prod-1", "kg", 3, ""))
	require.NoError(t, service.Reserve(ctx, "prod-1", "kg", "order-1", 1))

	assert.ErrorIs(t, service.Release(ctx, "prod-1", "kg", "order-1", 2), ErrInsufficientReserved)
	assert.ErrorIs(t, service.Deduct(ctx, "prod-1", "kg", "order-1", 2), ErrInsufficientReserved)
}

func TestService_Adjust(t *testing.T) {
	service, _ := newTestInventoryService()
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "prod-1", "kg", 5, ""))
	require.NoError(t, service.Reserve(ctx, "prod-1", "kg", "order-1", 2))

	require.NoError(t, service.Adjust(ctx, "prod-1", "kg", -3, "damaged"))
	inv, err := service.Get(ctx, "prod-1", "kg")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.TotalStock)
	assert.Equal(t, 0, inv.AvailableStock())

	assert.ErrorIs(t, service.Adjust(ctx, "prod-1", "kg", -1, "lost"), ErrNegativeStock)
	assert.ErrorIs(t, service.Adjust(ctx, "prod-1", "kg", 0, "noop"), ErrInvalidQuantity)
}

func TestService_SetThreshold(t *testing.T) {
	service, eventStore := newTestInventoryService()
	ctx := context.Background()

	require.NoError(t, service.SetThreshold(ctx, "prod-1", "kg", 5))
	require.NoError(t, service.SetThreshold(ctx, "prod-1", "kg", 5))
	assert.Len(t, eventStore.AppendCalls, 1, "unchanged level emits nothing")

	require.NoError(t, service.AddStock(ctx, "prod-1", "kg", 4, ""))
	added := eventStore.AppendCalls[1].Data.(StockAdded)
	assert.Equal(t, 5, added.MinStockLevel)

	assert.ErrorIs(t, service.SetThreshold(ctx, "prod-1", "kg", -1), ErrInvalidThreshold)
}

func TestService_Get_RequiresUnit(t *testing.T) {
	service, _ := newTestInventoryService()

	_, err := service.Get(context.Background(), "prod-1", "")
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestService_ConcurrentReservesNeverOversell(t *testing.T) {
	service := NewService(store.NewEventStore(nil))
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "prod-1", "kg", 5, "initial"))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := service.Reserve(ctx, "prod-1", "kg", "order", 1)
			if err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrInsufficientStock) || errors.Is(err, store.ErrVersionConflict), err)
		}()
	}
	wg.Wait()

	inv, err := service.Get(ctx, "prod-1", "kg")
	require.NoError(t, err)
	assert.LessOrEqual(t, reserved, 5)
	assert.Equal(t, reserved, inv.ReservedStock)
	assert.GreaterOrEqual(t, inv.AvailableStock(), 0)
}
