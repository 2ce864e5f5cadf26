package purchase

import "time"

const (
	EventPurchaseOrderCreated   = "PurchaseOrderCreated"
	EventPurchaseOrderReceived  = "PurchaseOrderReceived"
	EventPurchaseOrderCancelled = "PurchaseOrderCancelled"
)

type Line struct {
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
	Quantity  int    `json:"quantity"`
	CostPrice int    `json:"cost_price"`
}

type PurchaseOrderCreated struct {
	PurchaseOrderID string    `json:"purchase_order_id"`
	Supplier        string    `json:"supplier"`
	Lines           []Line    `json:"lines"`
	TotalCost       int       `json:"total_cost"`
	CreatedAt       time.Time `json:"created_at"`
}

type PurchaseOrderReceived struct {
	PurchaseOrderID string    `json:"purchase_order_id"`
	ReceivedAt      time.Time `json:"received_at"`
}

type PurchaseOrderCancelled struct {
	PurchaseOrderID string    `json:"purchase_order_id"`
	Reason          string    `json:"reason"`
	CancelledAt     time.Time `json:"cancelled_at"`
}
