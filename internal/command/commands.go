package command

import "github.com/example/grocery-shop/internal/domain/purchase"

// Product Commands

// ProductUnit is a unit of a new product together with its opening stock
type ProductUnit struct {
	UnitType      string `json:"unit_type"`
	Price         int    `json:"price"`
	CostPrice     int    `json:"cost_price"`
	MinStockLevel int    `json:"min_stock_level"`
	InitialStock  int    `json:"initial_stock"`
}

type CreateProduct struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	ImageURL    string        `json:"image_url"`
	Units       []ProductUnit `json:"units"`
}

// UpdateProduct replaces name, description, category and units. The image
// is changed separately.
type UpdateProduct struct {
	ProductID   string        `json:"product_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Units       []ProductUnit `json:"units"` // InitialStock is ignored
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

type AdjustStock struct {
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
}

// Cart Commands
type AddToCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItem struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
}

type ClearCart struct {
	UserID string `json:"user_id"`
}

// Order Commands
type PlaceOrder struct {
	UserID          string `json:"user_id"`
	ShippingAddress string `json:"shipping_address"`
}

type PayOrder struct {
	OrderID string `json:"order_id"`
}

type ShipOrder struct {
	OrderID string `json:"order_id"`
}

type DeliverOrder struct {
	OrderID string `json:"order_id"`
}

// CancelOrder cancels an order. When UserID is set the order must belong to that user.
type CancelOrder struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Reason  string `json:"reason"`
}

// Purchase Order Commands
type CreatePurchaseOrder struct {
	Supplier string          `json:"supplier"`
	Lines    []purchase.Line `json:"lines"`
}

type ReceivePurchaseOrder struct {
	PurchaseOrderID string `json:"purchase_order_id"`
}

type CancelPurchaseOrder struct {
	PurchaseOrderID string `json:"purchase_order_id"`
	Reason          string `json:"reason"`
}
