package inventory

import "time"

const (
	EventThresholdSet  = "StockThresholdSet"
	EventStockAdded    = "StockAdded"
	EventStockReserved = "StockReserved"
	EventStockReleased = "StockReleased"
	EventStockDeducted = "StockDeducted"
	EventStockAdjusted = "StockAdjusted"
)

// Movement is carried by every stock event. Available counts are on hand
// minus reserved, before and after the movement.
type Movement struct {
	InventoryID     string `json:"inventory_id"`
	ProductID       string `json:"product_id"`
	UnitType        string `json:"unit_type"`
	Quantity        int    `json:"quantity"`
	AvailableBefore int    `json:"available_before"`
	AvailableAfter  int    `json:"available_after"`
	MinStockLevel   int    `json:"min_stock_level"`
}

type StockThresholdSet struct {
	InventoryID   string    `json:"inventory_id"`
	ProductID     string    `json:"product_id"`
	UnitType      string    `json:"unit_type"`
	MinStockLevel int       `json:"min_stock_level"`
	SetAt         time.Time `json:"set_at"`
}

type StockAdded struct {
	Movement
	Reference string    `json:"reference,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

type StockReserved struct {
	Movement
	OrderID    string    `json:"order_id"`
	ReservedAt time.Time `json:"reserved_at"`
}

type StockReleased struct {
	Movement
	OrderID    string    `json:"order_id"`
	ReleasedAt time.Time `json:"released_at"`
}

type StockDeducted struct {
	Movement
	OrderID    string    `json:"order_id"`
	DeductedAt time.Time `json:"deducted_at"`
}

// StockAdjusted is a manual correction. Quantity is the signed delta.
type StockAdjusted struct {
	Movement
	Reason     string    `json:"reason"`
	AdjustedAt time.Time `json:"adjusted_at"`
}
