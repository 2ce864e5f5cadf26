package readmodel

import (
	"encoding/json"
	"fmt"
)

// Collection names
const (
	Products       = "products"
	Carts          = "carts"
	Orders         = "orders"
	Inventory      = "inventory"
	Users          = "users"
	Sessions       = "sessions"
	PurchaseOrders = "purchase_orders"
)

// Collections lists every read model collection
var Collections = []string{Products, Carts, Orders, Inventory, Users, Sessions, PurchaseOrders}

// New returns an empty read model for the collection
func New(collection string) (any, error) {
	switch collection {
	case Products:
		return &ProductReadModel{}, nil
	case Carts:
		return &CartReadModel{}, nil
	case Orders:
		return &OrderReadModel{}, nil
	case Inventory:
		return &InventoryReadModel{}, nil
	case Users:
		return &UserReadModel{}, nil
	case Sessions:
		return &SessionReadModel{}, nil
	case PurchaseOrders:
		return &PurchaseOrderReadModel{}, nil
	}
	return nil, fmt.Errorf("unknown collection: %s", collection)
}

// Decode unmarshals a stored JSON document into the collection's read model
func Decode(collection string, raw []byte) (any, error) {
	model, err := New(collection)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, model); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return model, nil
}
