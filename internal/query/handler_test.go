package query

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-shop/internal/infrastructure/store/mocks"
	"github.com/example/grocery-shop/internal/readmodel"
	"github.com/example/grocery-shop/internal/stock"
)

func newTestQueryHandler() (*Handler, *mocks.MockReadStore) {
	readStore := mocks.NewMockReadStore()
	handler := NewHandler(readStore)
	return handler, readStore
}

func seedProducts(rs *mocks.MockReadStore) {
	rs.SetData(readmodel.Products, "prod-1", &readmodel.ProductReadModel{
		ID: "prod-1", Name: "Rice", Description: "Long grain", Category: "Grains",
		Units: []readmodel.ProductUnitReadModel{
			{UnitType: "kg", Price: 250, StockQuantity: 40, MinStockLevel: 10, StockStatus: "in_stock"},
			{UnitType: "bag", Price: 2200, StockQuantity: 2, MinStockLevel: 5, StockStatus: "low_stock"},
		},
	})
	rs.SetData(readmodel.Products, "prod-2", &readmodel.ProductReadModel{
		ID: "prod-2", Name: "apples", Description: "Red and crisp", Category: "Fruit",
		Units: []readmodel.ProductUnitReadModel{
			{UnitType: "kg", Price: 300, StockQuantity: 0, MinStockLevel: 5, StockStatus: "out_of_stock"},
		},
	})
	rs.SetData(readmodel.Products, "prod-3", &readmodel.ProductReadModel{
		ID: "prod-3", Name: "Brown Rice", Description: "Whole grain", Category: "grains",
		Units: []readmodel.ProductUnitReadModel{
			{UnitType: "kg", Price: 320, StockQuantity: 15, MinStockLevel: 15, StockStatus: "low_stock"},
		},
	})
}

// ============================================
// Product Query Tests
// ============================================

func TestHandler_GetProduct_Found(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedProducts(readStore)

	product, err := handler.GetProduct("prod-1")

	require.NoError(t, err)
	assert.Equal(t, "Rice", product.Name)
	assert.Len(t, product.Units, 2)
}

func TestHandler_GetProduct_NotFound(t *testing.T) {
	handler, _ := newTestQueryHandler()

	product, err := handler.GetProduct("non-existent")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, product)
}

func TestHandler_GetProduct_StoreError(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.Err = errors.New("connection refused")

	_, err := handler.GetProduct("prod-1")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestHandler_ListProducts_SortedByName(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedProducts(readStore)

	products, err := handler.ListProducts(ProductFilter{})

	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "apples", products[0].Name)
	assert.Equal(t, "Brown Rice", products[1].Name)
	assert.Equal(t, "Rice", products[2].Name)
}

func TestHandler_ListProducts_Filters(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedProducts(readStore)

	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{"category is case insensitive", ProductFilter{Category: "GRAINS"}, []string{"prod-3", "prod-1"}},
		{"search matches name", ProductFilter{Search: "rice"}, []string{"prod-3", "prod-1"}},
		{"search matches description", ProductFilter{Search: "crisp"}, []string{"prod-2"}},
		{"both filters", ProductFilter{Category: "grains", Search: "whole"}, []string{"prod-3"}},
		{"no match", ProductFilter{Category: "Dairy"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := handler.ListProducts(tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestHandler_ListCategories(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedProducts(readStore)

	categories, err := handler.ListCategories()

	require.NoError(t, err)
	assert.Equal(t, []string{"Fruit", "Grains", "grains"}, categories)
}

func TestHandler_ResolveCartItem(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedProducts(readStore)

	item, err := handler.ResolveCartItem("prod-1", "bag")
	require.NoError(t, err)
	assert.Equal(t, ResolvedItem{ProductID: "prod-1", UnitType: "bag", Name: "Rice", Price: 2200}, item)

	item, err = handler.ResolveCartItem("prod-1", "")
	require.NoError(t, err)
	assert.Equal(t, "kg", item.UnitType, "empty unit resolves to the first unit")

	_, err = handler.ResolveCartItem("prod-1", "crate")
	assert.ErrorIs(t, err, ErrUnitNotFound)

	_, err = handler.ResolveCartItem("missing", "kg")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Cart Query Tests
// ============================================

func TestHandler_GetCart_Empty(t *testing.T) {
	handler, _ := newTestQueryHandler()

	cart, err := handler.GetCart("user-123")

	require.NoError(t, err)
	assert.Equal(t, "cart-user-123", cart.ID)
	assert.Equal(t, "user-123", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)
}

func TestHandler_GetCart_WithItems(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.Carts, "cart-user-123", &readmodel.CartReadModel{
		ID:     "cart-user-123",
		UserID: "user-123",
		Items: []readmodel.CartItemReadModel{
			{ProductID: "prod-1", UnitType: "kg", Quantity: 2, Price: 250, TotalPrice: 500},
		},
		Total:     500,
		ItemCount: 2,
	})

	cart, err := handler.GetCart("user-123")

	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 500, cart.Total)
}

// ============================================
// Order Query Tests
// ============================================

func seedOrders(rs *mocks.MockReadStore) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rs.SetData(readmodel.Orders, "order-1", &readmodel.OrderReadModel{ID: "order-1", UserID: "user-1", Total: 1000, Status: "pending", CreatedAt: base})
	rs.SetData(readmodel.Orders, "order-2", &readmodel.OrderReadModel{ID: "order-2", UserID: "user-2", Total: 2000, Status: "paid", CreatedAt: base.Add(time.Hour)})
	rs.SetData(readmodel.Orders, "order-3", &readmodel.OrderReadModel{ID: "order-3", UserID: "user-1", Total: 3000, Status: "delivered", CreatedAt: base.Add(2 * time.Hour)})
	rs.SetData(readmodel.Orders, "order-4", &readmodel.OrderReadModel{ID: "order-4", UserID: "user-1", Total: 500, Status: "cancelled", CreatedAt: base.Add(3 * time.Hour)})
}

func TestHandler_GetOrder(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedOrders(readStore)

	o, err := handler.GetOrder("order-2")
	require.NoError(t, err)
	assert.Equal(t, "paid", o.Status)

	_, err = handler.GetOrder("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler_ListOrdersByUser_NewestFirst(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedOrders(readStore)

	orders, err := handler.ListOrdersByUser("user-1")

	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "order-4", orders[0].ID)
	assert.Equal(t, "order-3", orders[1].ID)
	assert.Equal(t, "order-1", orders[2].ID)
}

func TestHandler_ListOrders_StatusFilter(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedOrders(readStore)

	all, err := handler.ListOrders("")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	paid, err := handler.ListOrders("paid")
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, "order-2", paid[0].ID)
}

func TestHandler_SalesReport(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedOrders(readStore)

	report, err := handler.SalesReport()

	require.NoError(t, err)
	assert.Equal(t, 4, report.Orders)
	assert.Equal(t, 5000, report.Revenue)
	assert.Equal(t, StatusTotals{Orders: 1, Value: 500}, report.ByStatus["cancelled"])
	assert.Equal(t, StatusTotals{Orders: 1, Value: 1000}, report.ByStatus["pending"])
}

// ============================================
// Inventory Query Tests
// ============================================

func TestHandler_GetInventory(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.Inventory, "prod-1:kg", &readmodel.InventoryReadModel{
		ID: "prod-1:kg", ProductID: "prod-1", UnitType: "kg", TotalStock: 50, ReservedStock: 10, AvailableStock: 40,
	})

	inv, err := handler.GetInventory("prod-1", "kg")
	require.NoError(t, err)
	assert.Equal(t, 40, inv.AvailableStock)

	_, err = handler.GetInventory("prod-1", "bag")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := handler.ListInventory()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHandler_LowStockFeed(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedProducts(readStore)

	feed, err := handler.LowStockFeed()

	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, stock.Alert{
		ProductID: "prod-2", ProductName: "apples", UnitType: "kg",
		StockQuantity: 0, MinStockLevel: 5, Status: stock.OutOfStock,
	}, feed[0])
	// low stock alerts keep product name order
	assert.Equal(t, "prod-3", feed[1].ProductID)
	assert.Equal(t, "prod-1", feed[2].ProductID)
	assert.Equal(t, "bag", feed[2].UnitType)
}

func TestHandler_StockSummary(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	seedProducts(readStore)

	summary, err := handler.StockSummary()

	require.NoError(t, err)
	assert.Equal(t, stock.Summary{InStock: 1, LowStock: 2, OutOfStock: 1}, summary)
}

// ============================================
// User Query Tests
// ============================================

func TestHandler_FindUserByEmail(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.Users, "user-1", &readmodel.UserReadModel{ID: "user-1", Email: "ana@example.com", Name: "Ana"})
	readStore.SetData(readmodel.Users, "user-2", &readmodel.UserReadModel{ID: "user-2", Email: "bo@example.com", Name: "Bo"})

	u, err := handler.FindUserByEmail("  ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)

	_, err = handler.FindUserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := handler.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestHandler_GetSession(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	readStore.SetData(readmodel.Sessions, "session-1", &readmodel.SessionReadModel{ID: "session-1", UserID: "user-1"})

	s, err := handler.GetSession("session-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)

	_, err = handler.GetSession("session-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Purchase Order Query Tests
// ============================================

func TestHandler_ListPurchaseOrders(t *testing.T) {
	handler, readStore := newTestQueryHandler()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	readStore.SetData(readmodel.PurchaseOrders, "po-1", &readmodel.PurchaseOrderReadModel{ID: "po-1", Status: "open", CreatedAt: base})
	readStore.SetData(readmodel.PurchaseOrders, "po-2", &readmodel.PurchaseOrderReadModel{ID: "po-2", Status: "received", CreatedAt: base.Add(time.Hour)})

	all, err := handler.ListPurchaseOrders("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "po-2", all[0].ID)

	open, err := handler.ListPurchaseOrders("open")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "po-1", open[0].ID)

	po, err := handler.GetPurchaseOrder("po-1")
	require.NoError(t, err)
	assert.Equal(t, "open", po.Status)
}
