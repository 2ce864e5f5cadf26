package readmodel

import "time"

// ProductUnitReadModel is one purchasable unit of a product.
// StockQuantity is the available stock (on hand minus reserved).
type ProductUnitReadModel struct {
	UnitType      string `json:"unit_type"`
	Price         int    `json:"price"`
	CostPrice     int    `json:"cost_price"`
	StockQuantity int    `json:"stock_quantity"`
	MinStockLevel int    `json:"min_stock_level"`
	StockStatus   string `json:"stock_status"`
}

// ProductReadModel is the read model for products
type ProductReadModel struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	ImageURL    string                 `json:"image_url,omitempty"`
	Units       []ProductUnitReadModel `json:"units"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Unit returns the unit with the given type
func (p *ProductReadModel) Unit(unitType string) (*ProductUnitReadModel, bool) {
	for i := range p.Units {
		if p.Units[i].UnitType == unitType {
			return &p.Units[i], true
		}
	}
	return nil, false
}

// CartItemReadModel represents an item in the cart
type CartItemReadModel struct {
	ProductID  string `json:"product_id"`
	UnitType   string `json:"unit_type"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      int    `json:"price"`
	TotalPrice int    `json:"total_price"`
}

// CartReadModel is the read model for shopping cart
type CartReadModel struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Items     []CartItemReadModel `json:"items"`
	Total     int                 `json:"total"`
	ItemCount int                 `json:"item_count"`
	UpdatedAt time.Time           `json:"updated_at"`
	Version   int                 `json:"version"` // last applied event
}

// OrderItemReadModel represents an item in an order
type OrderItemReadModel struct {
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
}

// OrderReadModel is the read model for orders
type OrderReadModel struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	Items           []OrderItemReadModel `json:"items"`
	Total           int                  `json:"total"`
	Status          string               `json:"status"`
	ShippingAddress string               `json:"shipping_address"`
	CancelReason    string               `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// InventoryReadModel is the read model for the stock of one product unit
type InventoryReadModel struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	UnitType       string    `json:"unit_type"`
	TotalStock     int       `json:"total_stock"`
	ReservedStock  int       `json:"reserved_stock"`
	AvailableStock int       `json:"available_stock"`
	MinStockLevel  int       `json:"min_stock_level"`
	StockStatus    string    `json:"stock_status"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int       `json:"version"` // last applied event
}

// UserReadModel is the read model for users
type UserReadModel struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionReadModel is the read model for user sessions
type SessionReadModel struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`
}

// PurchaseOrderLineReadModel is a line of a purchase order
type PurchaseOrderLineReadModel struct {
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
	Quantity  int    `json:"quantity"`
	CostPrice int    `json:"cost_price"`
}

// PurchaseOrderReadModel is the read model for supplier purchase orders
type PurchaseOrderReadModel struct {
	ID         string                       `json:"id"`
	Supplier   string                       `json:"supplier"`
	Lines      []PurchaseOrderLineReadModel `json:"lines"`
	TotalCost  int                          `json:"total_cost"`
	Status     string                       `json:"status"`
	CreatedAt  time.Time                    `json:"created_at"`
	ReceivedAt time.Time                    `json:"received_at,omitempty"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}
