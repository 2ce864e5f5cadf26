package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/grocery-shop/internal/command"
	"github.com/example/grocery-shop/internal/domain/purchase"
	"github.com/example/grocery-shop/internal/query"
	"github.com/example/grocery-shop/internal/stock"
)

type productUnitRequest struct {
	UnitType      string `json:"unit_type" validate:"required,max=32"`
	Price         int    `json:"price" validate:"gt=0"`
	CostPrice     int    `json:"cost_price" validate:"gte=0"`
	MinStockLevel int    `json:"min_stock_level" validate:"gte=0"`
	InitialStock  int    `json:"initial_stock" validate:"gte=0"`
}

type productRequest struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Description string               `json:"description" validate:"max=2000"`
	Category    string               `json:"category" validate:"max=100"`
	ImageURL    string               `json:"image_url" validate:"omitempty,url"`
	Units       []productUnitRequest `json:"units" validate:"required,min=1,dive"`
}

func (req productRequest) units() []command.ProductUnit {
	units := make([]command.ProductUnit, 0, len(req.Units))
	for _, u := range req.Units {
		units = append(units, command.ProductUnit{
			UnitType:      u.UnitType,
			Price:         u.Price,
			CostPrice:     u.CostPrice,
			MinStockLevel: u.MinStockLevel,
			InitialStock:  u.InitialStock,
		})
	}
	return units
}

type productImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

type adjustStockRequest struct {
	Delta  int    `json:"delta" validate:"ne=0"`
	Reason string `json:"reason" validate:"required,max=200"`
}

type purchaseLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	UnitType  string `json:"unit_type" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	CostPrice int    `json:"cost_price" validate:"gte=0"`
}

type purchaseOrderRequest struct {
	Supplier string                `json:"supplier" validate:"required,max=200"`
	Lines    []purchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ReportSummary is the dashboard overview
type ReportSummary struct {
	Sales query.SalesReport `json:"sales"`
	Stock stock.Summary     `json:"stock"`
}

// Products

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.cmdHandler.CreateProduct(r.Context(), command.CreateProduct{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Units:       req.units(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// UpdateProduct replaces the product details. Opening stock and image are ignored.
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.cmdHandler.UpdateProduct(r.Context(), command.UpdateProduct{
		ProductID:   chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Units:       req.units(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteProduct(r.Context(), command.DeleteProduct{ProductID: chi.URLParam(r, "id")}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetProductImage(w http.ResponseWriter, r *http.Request) {
	var req productImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.cmdHandler.SetProductImage(r.Context(), chi.URLParam(r, "id"), req.ImageURL); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Inventory

func (h *Handlers) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.queryHandler.ListInventory()
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.queryHandler.GetInventory(chi.URLParam(r, "productID"), chi.URLParam(r, "unitType"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inv, err := h.cmdHandler.AdjustStock(r.Context(), command.AdjustStock{
		ProductID: chi.URLParam(r, "productID"),
		UnitType:  chi.URLParam(r, "unitType"),
		Delta:     req.Delta,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// LowStockFeed lists units needing attention, out of stock first
func (h *Handlers) LowStockFeed(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.queryHandler.LowStockFeed()
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// Orders

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrders(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) PayOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.cmdHandler.PayOrder(r.Context(), command.PayOrder{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) ShipOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.cmdHandler.ShipOrder(r.Context(), command.ShipOrder{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.cmdHandler.DeliverOrder(r.Context(), command.DeliverOrder{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// CancelOrder cancels any customer's order
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by staff"
	}

	o, err := h.cmdHandler.CancelOrder(r.Context(), command.CancelOrder{
		OrderID: chi.URLParam(r, "id"),
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Purchase orders

func (h *Handlers) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	pos, err := h.queryHandler.ListPurchaseOrders(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pos)
}

func (h *Handlers) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.queryHandler.GetPurchaseOrder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

func (h *Handlers) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req purchaseOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lines := make([]purchase.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, purchase.Line{
			ProductID: l.ProductID,
			UnitType:  l.UnitType,
			Quantity:  l.Quantity,
			CostPrice: l.CostPrice,
		})
	}

	po, err := h.cmdHandler.CreatePurchaseOrder(r.Context(), command.CreatePurchaseOrder{
		Supplier: req.Supplier,
		Lines:    lines,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, po)
}

// ReceivePurchaseOrder books the delivered quantities into stock
func (h *Handlers) ReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.cmdHandler.ReceivePurchaseOrder(r.Context(), command.ReceivePurchaseOrder{
		PurchaseOrderID: chi.URLParam(r, "id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

func (h *Handlers) CancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	po, err := h.cmdHandler.CancelPurchaseOrder(r.Context(), command.CancelPurchaseOrder{
		PurchaseOrderID: chi.URLParam(r, "id"),
		Reason:          req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

// Reports

func (h *Handlers) ReportSummary(w http.ResponseWriter, r *http.Request) {
	sales, err := h.queryHandler.SalesReport()
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.queryHandler.StockSummary()
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ReportSummary{Sales: sales, Stock: summary})
}
