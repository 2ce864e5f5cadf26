package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-shop/internal/api/middleware"
	"github.com/example/grocery-shop/internal/cartsync"
)

func TestGuestCart_AddMintsSessionAndPricesFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sessionID := rec.Header().Get(middleware.CartSessionHeader)
	require.NotEmpty(t, sessionID)

	body := decode[CartResponse](t, rec)
	assert.False(t, body.Authenticated)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Rice", body.Items[0].Name)
	assert.Equal(t, 250, body.Items[0].Price)
	assert.Equal(t, 750, body.Total)
	assert.Equal(t, 3, body.ItemCount)

	// Same session, same key: quantities sum
	rec = env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 2}, withCartSession(sessionID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(middleware.CartSessionHeader))
	body = decode[CartResponse](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, 5, body.Items[0].Quantity)
	assert.Equal(t, 1250, body.Total)

	// Default unit is the first one
	rec = env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, Quantity: 1}, withCartSession(sessionID))
	body = decode[CartResponse](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, 6, body.Items[0].Quantity)

	rec = env.do(t, http.MethodGet, "/api/cart", nil, withCartSession(sessionID))
	body = decode[CartResponse](t, rec)
	assert.Equal(t, 1500, body.Total)
}

func TestGuestCart_UpdateAndRemove(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	session := withCartSession("guest-1")

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 3}, session)
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "bag", Quantity: 1}, session)

	rec := env.do(t, http.MethodPut, "/api/cart/items/"+riceID+"?unit=bag", updateCartItemRequest{Quantity: 2}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[CartResponse](t, rec)
	assert.Equal(t, 3*250+2*2200, body.Total)

	rec = env.do(t, http.MethodDelete, "/api/cart/items/"+riceID+"?unit=kg", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[CartResponse](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "bag", body.Items[0].UnitType)

	// Quantity zero removes the entry
	rec = env.do(t, http.MethodPut, "/api/cart/items/"+riceID+"?unit=bag", updateCartItemRequest{Quantity: 0}, session)
	body = decode[CartResponse](t, rec)
	assert.Empty(t, body.Items)
}

func TestCart_NegativeUpdateRemoves(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	session := withCartSession("guest-1")
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 3}, session)
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 3}, token)

	for name, opt := range map[string]requestOption{"guest": session, "signed in": token} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/api/cart/items/"+riceID+"?unit=kg", updateCartItemRequest{Quantity: -2}, opt)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Empty(t, decode[CartResponse](t, rec).Items)
		})
	}
}

func TestGuestCart_Clear(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	session := withCartSession("guest-1")

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, Quantity: 2}, session)

	rec := env.do(t, http.MethodDelete, "/api/cart", nil, session)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart", nil, session)
	assert.Empty(t, decode[CartResponse](t, rec).Items)
}

func TestGuestCart_NoSessionIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"item_count":0,"authenticated":false}`, rec.Body.String())
}

func TestCart_AddRejects(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)

	tests := []struct {
		name       string
		req        addCartItemRequest
		wantStatus int
		wantError  string
		wantDetail map[string]string
	}{
		{
			name:       "negative quantity",
			req:        addCartItemRequest{ProductID: riceID, Quantity: -1},
			wantStatus: http.StatusBadRequest,
			wantError:  "validation failed",
			wantDetail: map[string]string{"quantity": "gt=0"},
		},
		{
			name:       "missing product",
			req:        addCartItemRequest{Quantity: 1},
			wantStatus: http.StatusBadRequest,
			wantError:  "validation failed",
			wantDetail: map[string]string{"product_id": "required"},
		},
		{
			name:       "unknown product",
			req:        addCartItemRequest{ProductID: "missing", Quantity: 1},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown unit",
			req:        addCartItemRequest{ProductID: riceID, UnitType: "crate", Quantity: 1},
			wantStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/cart/items", tt.req, withCartSession("guest-1"))
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode[ErrorResponse](t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body.Error)
			}
			if tt.wantDetail != nil {
				assert.Equal(t, tt.wantDetail, body.Details)
			}
		})
	}

	// Nothing reached the guest cart
	rec := env.do(t, http.MethodGet, "/api/cart", nil, withCartSession("guest-1"))
	assert.Empty(t, decode[CartResponse](t, rec).Items)
}

func TestCart_InvalidSessionID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/cart", nil, withCartSession(strings.Repeat("a", 200)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_GuestCartUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.redis.Close()

	rec := env.do(t, http.MethodGet, "/api/cart", nil, withCartSession("guest-1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthenticatedCart_UsesServerCart(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)

	rec := env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "bag", Quantity: 2}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get(middleware.CartSessionHeader))

	body := decode[CartResponse](t, rec)
	assert.True(t, body.Authenticated)
	assert.Equal(t, 4400, body.Total)

	rec = env.do(t, http.MethodPut, "/api/cart/items/"+riceID+"?unit=bag", updateCartItemRequest{Quantity: 1}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2200, decode[CartResponse](t, rec).Total)

	rec = env.do(t, http.MethodGet, "/api/cart", nil, token)
	body = decode[CartResponse](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Rice", body.Items[0].Name)

	// Nothing was written to Redis for a signed-in cart
	assert.Empty(t, env.redis.Keys())
}

func TestCart_SignInMergesGuestCart(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	milkID := env.createMilk(t)
	session := withCartSession("guest-1")

	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 2}, session)
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: milkID, Quantity: 1}, session)

	resp := env.register(t, "shopper@example.com", session)
	require.NotNil(t, resp.CartMerge)
	assert.Equal(t, 2, resp.CartMerge.Merged)
	require.Len(t, resp.CartMerge.Items, 2)

	token := withToken(resp.Tokens.AccessToken)
	rec := env.do(t, http.MethodGet, "/api/cart", nil, token)
	body := decode[CartResponse](t, rec)
	assert.True(t, body.Authenticated)
	assert.Equal(t, 2*250+120, body.Total)

	// The guest cart is gone
	rec = env.do(t, http.MethodGet, "/api/cart", nil, session)
	assert.Empty(t, decode[CartResponse](t, rec).Items)
}

func TestCart_MergeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)

	// Server cart already has 1 kg
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 1}, token)
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 4}, withCartSession("guest-1"))

	rec := env.do(t, http.MethodPost, "/api/cart/merge", nil, token, withCartSession("guest-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[cartsync.MergeResult](t, rec)
	assert.Equal(t, 1, result.Merged)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 5, result.Items[0].Quantity)
}

func TestCart_MergeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/merge", nil, withCartSession("guest-1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_MergeSkipsDeletedProducts(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	milkID := env.createMilk(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)
	session := withCartSession("guest-1")

	// The deleted product comes first so it would block everything after it
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: milkID, Quantity: 1}, session)
	env.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: riceID, UnitType: "kg", Quantity: 2}, session)

	rec := env.do(t, http.MethodDelete, "/api/admin/products/"+milkID, nil, withToken(env.adminToken(t)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/merge", nil, token, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[cartsync.MergeResult](t, rec)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Remaining)
	require.Len(t, result.Items, 1)
	assert.Equal(t, riceID, result.Items[0].ProductID)

	// The guest cart is emptied, the dropped item included
	rec = env.do(t, http.MethodGet, "/api/cart", nil, session)
	assert.Empty(t, decode[CartResponse](t, rec).Items)
}

// seedGuestCart writes a guest cart straight into Redis
func (e *testEnv) seedGuestCart(t *testing.T, sessionID string, items []cartsync.Item) {
	t.Helper()
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	require.NoError(t, e.redis.Set("guestcart:"+sessionID, string(raw)))
}

func TestCart_MergeStopsOnFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	milkID := env.createMilk(t)
	token := withToken(env.register(t, "shopper@example.com").Tokens.AccessToken)

	// A corrupt line the server cart refuses without rejecting the product
	env.seedGuestCart(t, "guest-1", []cartsync.Item{
		{ProductID: riceID, UnitType: "kg", Quantity: 1, Price: 250},
		{ProductID: milkID, UnitType: "liter", Quantity: 0, Price: 120},
		{ProductID: riceID, UnitType: "bag", Quantity: 1, Price: 2200},
	})

	rec := env.do(t, http.MethodPost, "/api/cart/merge", nil, token, withCartSession("guest-1"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "cart merge incomplete", body.Error)
	assert.Equal(t, "1", body.Details["merged"])
	assert.Equal(t, "0", body.Details["skipped"])
	assert.Equal(t, "2", body.Details["remaining"])

	// The unmerged items stay in the guest cart
	rec = env.do(t, http.MethodGet, "/api/cart", nil, withCartSession("guest-1"))
	items := decode[CartResponse](t, rec).Items
	require.Len(t, items, 2)
	assert.Equal(t, milkID, items[0].ProductID)
	assert.Equal(t, "bag", items[1].UnitType)
}

func TestCart_SignInReportsFailedMerge(t *testing.T) {
	env := newTestEnv(t)
	riceID := env.createRice(t)
	milkID := env.createMilk(t)
	session := withCartSession("guest-1")

	env.seedGuestCart(t, "guest-1", []cartsync.Item{
		{ProductID: milkID, UnitType: "liter", Quantity: 0, Price: 120},
		{ProductID: riceID, UnitType: "kg", Quantity: 2, Price: 250},
	})

	resp := env.register(t, "shopper@example.com", session)
	require.NotNil(t, resp.CartMerge)
	assert.Zero(t, resp.CartMerge.Merged)
	assert.Equal(t, 2, resp.CartMerge.Remaining)
	assert.Contains(t, resp.CartMergeError, "cart merge stopped after 0 of 2 items")
}

func TestCart_SignInReportsUnreachableGuestCart(t *testing.T) {
	env := newTestEnv(t)
	env.redis.Close()

	resp := env.register(t, "shopper@example.com", withCartSession("guest-1"))
	require.NotNil(t, resp.CartMerge)
	assert.Zero(t, resp.CartMerge.Merged)
	assert.Contains(t, resp.CartMergeError, cartsync.ErrLocalUnavailable.Error())
}
