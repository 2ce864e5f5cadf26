package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-shop/internal/readmodel"
)

func TestOrders_PlaceFromServerCart(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "bag", Quantity: 2}, token)

	rec := env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{ShippingAddress: "1 Market St"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[map[string]any](t, rec)
	orderID := placed["id"].(string)
	assert.Equal(t, "pending", placed["status"])
	assert.EqualValues(t, 4400, placed["total"])

	// The cart was emptied and the bags reserved
	rec = env.do(t, http.MethodGet, "/api/cart", nil, token)
	assert.Empty(t, decode[CartResponse](t, rec).Items)

	rec = env.do(t, http.MethodGet, "/api/products/"+riceID, nil)
	p := decode[readmodel.ProductReadModel](t, rec)
	bag, ok := p.Unit("bag")
	require.True(t, ok)
	assert.Equal(t, 3, bag.StockQuantity)

	rec = env.do(t, http.MethodGet, "/api/orders", nil, token)
	orders := decode[[]readmodel.OrderReadModel](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)

	rec = env.do(t, http.MethodGet, "/api/orders/"+orderID, nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrders_Rejects(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)

	rec := env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{ShippingAddress: "1 Market St"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty cart")

	rec = env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"shipping_address": "required"}, decode[ErrorResponse](t, rec).Details)

	rec = env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{ShippingAddress: "1 Market St"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// More bags than are in stock
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "bag", Quantity: 6}, token)
	rec = env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{ShippingAddress: "1 Market St"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOrders_OtherUsersOrdersAreHidden(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	owner := withToken(env.register(t, "owner@example.com").Tokens.AccessToken)
	other := withToken(env.register(t, "other@example.com").Tokens.AccessToken)

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, Quantity: 1}, owner)
	rec := env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{ShippingAddress: "1 Market St"}, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decode[map[string]any](t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/api/orders/"+orderID, nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/orders/"+orderID+"/cancel", cancelOrderRequest{}, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/orders/"+orderID, nil, withToken(env.adminToken(t)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrders_CustomerCancelReleasesStock(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 45}, token)
	rec := env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{ShippingAddress: "1 Market St"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode[map[string]any](t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/api/products/"+riceID, nil)
	rice := decode[readmodel.ProductReadModel](t, rec)
	kg, _ := rice.Unit("kg")
	assert.Equal(t, "low_stock", kg.StockStatus)

	rec = env.do(t, http.MethodPost, "/api/orders/"+orderID+"/cancel", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled by customer", decode[map[string]any](t, rec)["cancel_reason"])

	rec = env.do(t, http.MethodGet, "/api/products/"+riceID, nil)
	rice = decode[readmodel.ProductReadModel](t, rec)
	kg, _ = rice.Unit("kg")
	assert.Equal(t, 50, kg.StockQuantity)
	assert.Equal(t, "in_stock", kg.StockStatus)
}

func TestOrders_AdminFulfilment(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)
	admin := withToken(env.adminToken(t))

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "bag", Quantity: 1}, token)
	rec := env.do(t, http.MethodPost, "/api/orders", placeOrderRequest{ShippingAddress: "1 Market St"}, token)
	orderID := decode[map[string]any](t, rec)["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/admin/orders/"+orderID+"/ship", nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code, "unpaid orders cannot ship")

	for _, step := range []string{"pay", "ship", "deliver"} {
		rec = env.do(t, http.MethodPost, "/api/admin/orders/"+orderID+"/"+step, nil, admin)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/admin/orders?status=delivered", nil, admin)
	assert.Len(t, decode[[]readmodel.OrderReadModel](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/admin/orders/"+orderID+"/cancel", reasonRequest{Reason: "too late"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Shipping deducted the bag for good
	rec = env.do(t, http.MethodGet, "/api/admin/inventory/"+riceID+"/bag", nil, admin)
	inv := decode[readmodel.InventoryReadModel](t, rec)
	assert.Equal(t, 4, inv.TotalStock)
	assert.Equal(t, 0, inv.ReservedStock)

	rec = env.do(t, http.MethodGet, "/api/admin/reports/summary", nil, admin)
	summary := decode[ReportSummary](t, rec)
	assert.Equal(t, 2200, summary.Sales.Revenue)
}
