package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/grocery-shop/internal/api/middleware"
	"github.com/example/grocery-shop/internal/cartsync"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	UnitType  string `json:"unit_type"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the current cart view of a request
type CartResponse struct {
	Items         []cartsync.Item `json:"items"`
	Total         int             `json:"total"`
	ItemCount     int             `json:"item_count"`
	Authenticated bool            `json:"authenticated"`
}

func cartResponse(rec *cartsync.Reconciler) CartResponse {
	return CartResponse{
		Items:         rec.Items(),
		Total:         rec.Total(),
		ItemCount:     rec.ItemCount(),
		Authenticated: rec.IsAuthenticated(),
	}
}

// localCart returns the guest cart of the session, or an empty throwaway
// cart when the request carries no session.
func (h *Handlers) localCart(sessionID string) (cartsync.LocalStore, error) {
	if sessionID == "" || h.guestCarts == nil {
		return cartsync.NewMemoryStore(), nil
	}
	return h.guestCarts.Session(sessionID)
}

// reconciler builds the cart view of one request. The server cart is
// authoritative for signed-in callers and the guest cart otherwise.
func (h *Handlers) reconciler(ctx context.Context, sessionID string) (*cartsync.Reconciler, error) {
	local, err := h.localCart(sessionID)
	if err != nil {
		return nil, err
	}

	userID := middleware.GetUserID(ctx)
	var remote cartsync.RemoteCart
	if userID != "" {
		remote = h.cmdHandler.CartRemote(userID)
	}

	rec := cartsync.NewReconciler(local, remote)
	rec.SetAuthStatus(userID != "")
	return rec, nil
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reconciler(r.Context(), middleware.GetCartSession(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := rec.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(rec))
}

func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Resolving also rejects unknown products before a guest cart is written.
	resolved, err := h.queryHandler.ResolveCartItem(req.ProductID, req.UnitType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sessionID := middleware.GetCartSession(r.Context())
	if middleware.GetUserID(r.Context()) == "" {
		sessionID = middleware.EnsureCartSession(w, r)
	}

	rec, err := h.reconciler(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := rec.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := rec.AddItem(r.Context(), cartsync.Item{
		ProductID: resolved.ProductID,
		UnitType:  resolved.UnitType,
		Name:      resolved.Name,
		Quantity:  req.Quantity,
		Price:     resolved.Price,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(rec))
}

// cartItemUnit reads the unit from the query string and falls back to the
// product's default unit.
func (h *Handlers) cartItemUnit(r *http.Request, productID string) string {
	if unit := r.URL.Query().Get("unit"); unit != "" {
		return unit
	}
	resolved, err := h.queryHandler.ResolveCartItem(productID, "")
	if err != nil {
		return ""
	}
	return resolved.UnitType
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	productID := chi.URLParam(r, "productID")

	rec, err := h.reconciler(r.Context(), middleware.GetCartSession(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := rec.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := rec.UpdateItem(r.Context(), productID, h.cartItemUnit(r, productID), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(rec))
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	rec, err := h.reconciler(r.Context(), middleware.GetCartSession(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := rec.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := rec.RemoveItem(r.Context(), productID, h.cartItemUnit(r, productID)); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(rec))
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reconciler(r.Context(), middleware.GetCartSession(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rec.ClearCart(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MergeCart moves the guest cart of the request's cart session into the
// caller's server cart.
func (h *Handlers) MergeCart(w http.ResponseWriter, r *http.Request) {
	result, err := h.mergeGuestCart(r.Context(), middleware.GetCartSession(r.Context()), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.ClearCartSession(w)
	respondJSON(w, http.StatusOK, result)
}

// mergeGuestCart is shared by the merge endpoint and sign-in
func (h *Handlers) mergeGuestCart(ctx context.Context, sessionID, userID string) (cartsync.MergeResult, error) {
	local, err := h.localCart(sessionID)
	if err != nil {
		return cartsync.MergeResult{}, err
	}

	rec := cartsync.NewReconciler(local, h.cmdHandler.CartRemote(userID))
	rec.SetAuthStatus(true)
	result, err := rec.MergeCart(ctx)
	if err != nil {
		var mergeErr *cartsync.MergeError
		if errors.As(err, &mergeErr) {
			log.Printf("[Cart] Merge for user %s stopped: %v", userID, err)
		}
		return result, err
	}
	if result.Merged > 0 || result.Skipped > 0 {
		log.Printf("[Cart] Merged %d guest items into cart of user %s (%d skipped)", result.Merged, userID, result.Skipped)
	}
	return result, nil
}
