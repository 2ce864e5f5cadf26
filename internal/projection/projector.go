package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/grocery-shop/internal/domain/cart"
	"github.com/example/grocery-shop/internal/domain/inventory"
	"github.com/example/grocery-shop/internal/domain/order"
	"github.com/example/grocery-shop/internal/domain/product"
	"github.com/example/grocery-shop/internal/domain/purchase"
	"github.com/example/grocery-shop/internal/domain/user"
	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/readmodel"
	"github.com/example/grocery-shop/internal/stock"
)

type Projector struct {
	readStore store.ReadStoreInterface
}

func NewProjector(readStore store.ReadStoreInterface) *Projector {
	return &Projector{readStore: readStore}
}

// HandleEvent decodes a bus message and applies it (kafka.MessageHandler)
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	log.Printf("[Projector] Received event: %s (aggregate: %s)", event.EventType, event.AggregateType)
	return p.Apply(event)
}

// Apply updates the read models affected by one event
func (p *Projector) Apply(event store.Event) error {
	var err error
	switch event.AggregateType {
	case product.AggregateType:
		err = p.handleProductEvent(event)
	case inventory.AggregateType:
		err = p.handleInventoryEvent(event)
	case cart.AggregateType:
		err = p.handleCartEvent(event)
	case order.AggregateType:
		err = p.handleOrderEvent(event)
	case purchase.AggregateType:
		err = p.handlePurchaseOrderEvent(event)
	case user.AggregateType:
		err = p.handleUserEvent(event)
	}
	if err != nil {
		return fmt.Errorf("project %s %s: %w", event.EventType, event.AggregateID, err)
	}
	return nil
}

// Replay applies a stored event history in order, e.g. to warm an in-memory read store
func (p *Projector) Replay(events []store.Event) error {
	for _, event := range events {
		if err := p.Apply(event); err != nil {
			return err
		}
	}
	log.Printf("[Projector] Replayed %d events", len(events))
	return nil
}

// update applies fn to the stored model when it exists and has the expected type
func update[T any](rs store.ReadStoreInterface, collection, id string, fn func(*T)) error {
	found, err := rs.Update(collection, id, func(current any) any {
		if model, ok := current.(*T); ok {
			fn(model)
		}
		return current
	})
	if err != nil {
		return err
	}
	if !found {
		log.Printf("[Projector] %s/%s not found, skipping update", collection, id)
	}
	return nil
}

func getModel[T any](rs store.ReadStoreInterface, collection, id string) (*T, error) {
	data, ok, err := rs.Get(collection, id)
	if err != nil || !ok {
		return nil, err
	}
	model, _ := data.(*T)
	return model, nil
}

// Products

func (p *Projector) productUnits(productID string, units []product.Unit) ([]readmodel.ProductUnitReadModel, error) {
	out := make([]readmodel.ProductUnitReadModel, 0, len(units))
	for _, u := range units {
		qty := 0
		inv, err := getModel[readmodel.InventoryReadModel](p.readStore, readmodel.Inventory, inventory.ID(productID, u.UnitType))
		if err != nil {
			return nil, err
		}
		if inv != nil {
			qty = inv.AvailableStock
		}
		out = append(out, readmodel.ProductUnitReadModel{
			UnitType:      u.UnitType,
			Price:         u.Price,
			CostPrice:     u.CostPrice,
			StockQuantity: qty,
			MinStockLevel: u.MinStockLevel,
			StockStatus:   string(stock.DeriveStatus(qty, u.MinStockLevel)),
		})
	}
	return out, nil
}

func (p *Projector) handleProductEvent(event store.Event) error {
	switch event.EventType {
	case product.EventProductCreated:
		var e product.ProductCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		units, err := p.productUnits(e.ProductID, e.Units)
		if err != nil {
			return err
		}
		return p.readStore.Set(readmodel.Products, e.ProductID, &readmodel.ProductReadModel{
			ID:          e.ProductID,
			Name:        e.Name,
			Description: e.Description,
			Category:    e.Category,
			ImageURL:    e.ImageURL,
			Units:       units,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.CreatedAt,
		})

	case product.EventProductUpdated:
		var e product.ProductUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		units, err := p.productUnits(e.ProductID, e.Units)
		if err != nil {
			return err
		}
		return update(p.readStore, readmodel.Products, e.ProductID, func(prod *readmodel.ProductReadModel) {
			prod.Name = e.Name
			prod.Description = e.Description
			prod.Category = e.Category
			prod.Units = units
			prod.UpdatedAt = e.UpdatedAt
		})

	case product.EventProductImageUpdated:
		var e product.ProductImageUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return update(p.readStore, readmodel.Products, e.ProductID, func(prod *readmodel.ProductReadModel) {
			prod.ImageURL = e.ImageURL
			prod.UpdatedAt = e.UpdatedAt
		})

	case product.EventProductDeleted:
		var e product.ProductDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Delete(readmodel.Products, e.ProductID)
	}

	return nil
}

// Inventory

func (p *Projector) handleInventoryEvent(event store.Event) error {
	var (
		productID, unitType string
		minStockLevel       int
		apply               func(inv *readmodel.InventoryReadModel)
	)

	switch event.EventType {
	case inventory.EventThresholdSet:
		var e inventory.StockThresholdSet
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID, unitType, minStockLevel = e.ProductID, e.UnitType, e.MinStockLevel
		apply = func(inv *readmodel.InventoryReadModel) { inv.UpdatedAt = e.SetAt }

	case inventory.EventStockAdded:
		var e inventory.StockAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID, unitType, minStockLevel = e.ProductID, e.UnitType, e.MinStockLevel
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.TotalStock += e.Quantity
			inv.UpdatedAt = e.AddedAt
		}

	case inventory.EventStockReserved:
		var e inventory.StockReserved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID, unitType, minStockLevel = e.ProductID, e.UnitType, e.MinStockLevel
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.ReservedStock += e.Quantity
			inv.UpdatedAt = e.ReservedAt
		}

	case inventory.EventStockReleased:
		var e inventory.StockReleased
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID, unitType, minStockLevel = e.ProductID, e.UnitType, e.MinStockLevel
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.ReservedStock = max(inv.ReservedStock-e.Quantity, 0)
			inv.UpdatedAt = e.ReleasedAt
		}

	case inventory.EventStockDeducted:
		var e inventory.StockDeducted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID, unitType, minStockLevel = e.ProductID, e.UnitType, e.MinStockLevel
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.TotalStock = max(inv.TotalStock-e.Quantity, 0)
			inv.ReservedStock = max(inv.ReservedStock-e.Quantity, 0)
			inv.UpdatedAt = e.DeductedAt
		}

	case inventory.EventStockAdjusted:
		var e inventory.StockAdjusted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID, unitType, minStockLevel = e.ProductID, e.UnitType, e.MinStockLevel
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.TotalStock = max(inv.TotalStock+e.Quantity, 0)
			inv.UpdatedAt = e.AdjustedAt
		}

	default:
		return nil
	}

	id := inventory.ID(productID, unitType)
	inv, err := getModel[readmodel.InventoryReadModel](p.readStore, readmodel.Inventory, id)
	if err != nil {
		return err
	}
	if inv == nil {
		inv = &readmodel.InventoryReadModel{ID: id, ProductID: productID, UnitType: unitType}
	}
	// Redelivered events are already reflected
	if event.Version > 0 && event.Version <= inv.Version {
		return nil
	}

	apply(inv)
	inv.MinStockLevel = minStockLevel
	inv.AvailableStock = inv.TotalStock - inv.ReservedStock
	inv.StockStatus = string(stock.DeriveStatus(inv.AvailableStock, inv.MinStockLevel))
	inv.Version = event.Version
	if err := p.readStore.Set(readmodel.Inventory, id, inv); err != nil {
		return err
	}

	// Keep the product's unit in line with the inventory
	_, err = p.readStore.Update(readmodel.Products, productID, func(current any) any {
		prod, ok := current.(*readmodel.ProductReadModel)
		if !ok {
			return current
		}
		if u, ok := prod.Unit(unitType); ok {
			u.StockQuantity = inv.AvailableStock
			u.MinStockLevel = inv.MinStockLevel
			u.StockStatus = inv.StockStatus
		}
		return prod
	})
	return err
}

// Carts

func (p *Projector) handleCartEvent(event store.Event) error {
	var (
		cartID, userID string
		apply          func(c *readmodel.CartReadModel)
	)

	switch event.EventType {
	case cart.EventItemAdded:
		var e cart.ItemAddedToCart
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		cartID, userID = e.CartID, e.UserID
		apply = func(c *readmodel.CartReadModel) {
			// Same product and unit: sum quantities, latest price wins
			for i := range c.Items {
				if c.Items[i].ProductID == e.ProductID && c.Items[i].UnitType == e.UnitType {
					c.Items[i].Quantity += e.Quantity
					c.Items[i].Price = e.Price
					if e.Name != "" {
						c.Items[i].Name = e.Name
					}
					c.UpdatedAt = e.AddedAt
					return
				}
			}
			c.Items = append(c.Items, readmodel.CartItemReadModel{
				ProductID: e.ProductID,
				UnitType:  e.UnitType,
				Name:      e.Name,
				Quantity:  e.Quantity,
				Price:     e.Price,
			})
			c.UpdatedAt = e.AddedAt
		}

	case cart.EventQuantityChanged:
		var e cart.CartItemQuantityChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		cartID, userID = e.CartID, e.UserID
		apply = func(c *readmodel.CartReadModel) {
			for i := range c.Items {
				if c.Items[i].ProductID == e.ProductID && c.Items[i].UnitType == e.UnitType {
					c.Items[i].Quantity = e.Quantity
				}
			}
			c.UpdatedAt = e.ChangedAt
		}

	case cart.EventItemRemoved:
		var e cart.ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		cartID, userID = e.CartID, e.UserID
		apply = func(c *readmodel.CartReadModel) {
			items := make([]readmodel.CartItemReadModel, 0, len(c.Items))
			for _, item := range c.Items {
				if item.ProductID != e.ProductID || item.UnitType != e.UnitType {
					items = append(items, item)
				}
			}
			c.Items = items
			c.UpdatedAt = e.RemovedAt
		}

	case cart.EventCartCleared:
		var e cart.CartCleared
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		cartID, userID = e.CartID, e.UserID
		apply = func(c *readmodel.CartReadModel) {
			c.Items = []readmodel.CartItemReadModel{}
			c.UpdatedAt = e.ClearedAt
		}

	default:
		return nil
	}

	c, err := getModel[readmodel.CartReadModel](p.readStore, readmodel.Carts, cartID)
	if err != nil {
		return err
	}
	if c == nil {
		c = &readmodel.CartReadModel{ID: cartID, UserID: userID, Items: []readmodel.CartItemReadModel{}}
	}
	if event.Version > 0 && event.Version <= c.Version {
		return nil
	}

	apply(c)
	c.Total, c.ItemCount = 0, 0
	for i := range c.Items {
		c.Items[i].TotalPrice = c.Items[i].Price * c.Items[i].Quantity
		c.Total += c.Items[i].TotalPrice
		c.ItemCount += c.Items[i].Quantity
	}
	c.Version = event.Version
	return p.readStore.Set(readmodel.Carts, cartID, c)
}

// Orders

func (p *Projector) handleOrderEvent(event store.Event) error {
	setStatus := func(orderID string, status order.Status, at func(o *readmodel.OrderReadModel)) error {
		return update(p.readStore, readmodel.Orders, orderID, func(o *readmodel.OrderReadModel) {
			o.Status = string(status)
			at(o)
		})
	}

	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		items := make([]readmodel.OrderItemReadModel, len(e.Items))
		for i, item := range e.Items {
			items[i] = readmodel.OrderItemReadModel{
				ProductID: item.ProductID,
				UnitType:  item.UnitType,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
		}
		return p.readStore.Set(readmodel.Orders, e.OrderID, &readmodel.OrderReadModel{
			ID:              e.OrderID,
			UserID:          e.UserID,
			Items:           items,
			Total:           e.Total,
			Status:          string(order.StatusPending),
			ShippingAddress: e.ShippingAddress,
			CreatedAt:       e.PlacedAt,
			UpdatedAt:       e.PlacedAt,
		})

	case order.EventOrderPaid:
		var e order.OrderPaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return setStatus(e.OrderID, order.StatusPaid, func(o *readmodel.OrderReadModel) { o.UpdatedAt = e.PaidAt })

	case order.EventOrderShipped:
		var e order.OrderShipped
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return setStatus(e.OrderID, order.StatusShipped, func(o *readmodel.OrderReadModel) { o.UpdatedAt = e.ShippedAt })

	case order.EventOrderDelivered:
		var e order.OrderDelivered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return setStatus(e.OrderID, order.StatusDelivered, func(o *readmodel.OrderReadModel) { o.UpdatedAt = e.DeliveredAt })

	case order.EventOrderCancelled:
		var e order.OrderCancelled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return setStatus(e.OrderID, order.StatusCancelled, func(o *readmodel.OrderReadModel) {
			o.CancelReason = e.Reason
			o.UpdatedAt = e.CancelledAt
		})
	}

	return nil
}

// Purchase orders

func (p *Projector) handlePurchaseOrderEvent(event store.Event) error {
	switch event.EventType {
	case purchase.EventPurchaseOrderCreated:
		var e purchase.PurchaseOrderCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		lines := make([]readmodel.PurchaseOrderLineReadModel, len(e.Lines))
		for i, l := range e.Lines {
			lines[i] = readmodel.PurchaseOrderLineReadModel{
				ProductID: l.ProductID,
				UnitType:  l.UnitType,
				Quantity:  l.Quantity,
				CostPrice: l.CostPrice,
			}
		}
		return p.readStore.Set(readmodel.PurchaseOrders, e.PurchaseOrderID, &readmodel.PurchaseOrderReadModel{
			ID:        e.PurchaseOrderID,
			Supplier:  e.Supplier,
			Lines:     lines,
			TotalCost: e.TotalCost,
			Status:    string(purchase.StatusOpen),
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.CreatedAt,
		})

	case purchase.EventPurchaseOrderReceived:
		var e purchase.PurchaseOrderReceived
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return update(p.readStore, readmodel.PurchaseOrders, e.PurchaseOrderID, func(po *readmodel.PurchaseOrderReadModel) {
			po.Status = string(purchase.StatusReceived)
			po.ReceivedAt = e.ReceivedAt
			po.UpdatedAt = e.ReceivedAt
		})

	case purchase.EventPurchaseOrderCancelled:
		var e purchase.PurchaseOrderCancelled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return update(p.readStore, readmodel.PurchaseOrders, e.PurchaseOrderID, func(po *readmodel.PurchaseOrderReadModel) {
			po.Status = string(purchase.StatusCancelled)
			po.UpdatedAt = e.CancelledAt
		})
	}

	return nil
}
