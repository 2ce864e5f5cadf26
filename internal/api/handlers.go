package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/grocery-shop/internal/api/middleware"
	"github.com/example/grocery-shop/internal/command"
	"github.com/example/grocery-shop/internal/domain/order"
	"github.com/example/grocery-shop/internal/guestcart"
	"github.com/example/grocery-shop/internal/query"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	guestCarts   *guestcart.Store
	checks       map[string]HealthCheck
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, guestCarts *guestcart.Store) *Handlers {
	h := &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		guestCarts:   guestCarts,
		checks:       map[string]HealthCheck{},
	}
	if guestCarts != nil {
		h.checks["redis"] = guestCarts.Ping
	}
	return h
}

// AddHealthCheck registers a dependency probed by GET /health
func (h *Handlers) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]any{"status": state, "dependencies": deps})
}

// Catalog

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts(query.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("q"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.queryHandler.GetProduct(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queryHandler.ListCategories()
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// Orders

type placeOrderRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrdersByUser(middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// PlaceOrder checks out the caller's server cart
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.cmdHandler.PlaceOrder(r.Context(), command.PlaceOrder{
		UserID:          middleware.GetUserID(r.Context()),
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

// GetOrder returns an order of the caller. Other users' orders are reported as missing.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o.UserID != middleware.GetUserID(r.Context()) && !middleware.IsAdmin(r.Context()) {
		writeError(w, r, order.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelMyOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by customer"
	}

	o, err := h.cmdHandler.CancelOrder(r.Context(), command.CancelOrder{
		OrderID: chi.URLParam(r, "id"),
		UserID:  middleware.GetUserID(r.Context()),
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
