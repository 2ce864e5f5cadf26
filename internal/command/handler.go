package command

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/grocery-shop/internal/domain/cart"
	"github.com/example/grocery-shop/internal/domain/inventory"
	"github.com/example/grocery-shop/internal/domain/order"
	"github.com/example/grocery-shop/internal/domain/product"
	"github.com/example/grocery-shop/internal/domain/purchase"
	"github.com/example/grocery-shop/internal/query"
)

// Catalog resolves the unit and current price of a product for cart adds
type Catalog interface {
	ResolveCartItem(productID, unitType string) (query.ResolvedItem, error)
}

type Handler struct {
	productSvc   *product.Service
	cartSvc      *cart.Service
	orderSvc     *order.Service
	inventorySvc *inventory.Service
	purchaseSvc  *purchase.Service
	catalog      Catalog
}

func NewHandler(
	productSvc *product.Service,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	inventorySvc *inventory.Service,
	purchaseSvc *purchase.Service,
	catalog Catalog,
) *Handler {
	return &Handler{
		productSvc:   productSvc,
		cartSvc:      cartSvc,
		orderSvc:     orderSvc,
		inventorySvc: inventorySvc,
		purchaseSvc:  purchaseSvc,
		catalog:      catalog,
	}
}

func productUnits(units []ProductUnit) []product.Unit {
	out := make([]product.Unit, 0, len(units))
	for _, u := range units {
		out = append(out, product.Unit{
			UnitType:      u.UnitType,
			Price:         u.Price,
			CostPrice:     u.CostPrice,
			MinStockLevel: u.MinStockLevel,
		})
	}
	return out
}

// CreateProduct creates a product and opens an inventory per unit (async projection - updates via Kafka)
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	for _, u := range cmd.Units {
		if u.InitialStock < 0 {
			return nil, inventory.ErrInvalidQuantity
		}
	}

	// 1. Create product (emits ProductCreated event)
	p, err := h.productSvc.Create(ctx, product.Details{
		Name:        cmd.Name,
		Description: cmd.Description,
		Category:    cmd.Category,
		ImageURL:    cmd.ImageURL,
		Units:       productUnits(cmd.Units),
	})
	if err != nil {
		return nil, err
	}

	// 2. Initialize inventory per unit (emits StockThresholdSet and StockAdded events)
	for _, u := range cmd.Units {
		if err := h.inventorySvc.SetThreshold(ctx, p.ID, u.UnitType, u.MinStockLevel); err != nil {
			return nil, err
		}
		if u.InitialStock > 0 {
			if err := h.inventorySvc.AddStock(ctx, p.ID, u.UnitType, u.InitialStock, "initial stock"); err != nil {
				return nil, err
			}
		}
	}

	// Read Store is updated asynchronously via Kafka consumer
	return p, nil
}

// UpdateProduct replaces the editable fields and keeps inventory thresholds in line with the units
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	p, err := h.productSvc.Update(ctx, cmd.ProductID, product.Details{
		Name:        cmd.Name,
		Description: cmd.Description,
		Category:    cmd.Category,
		Units:       productUnits(cmd.Units),
	})
	if err != nil {
		return nil, err
	}

	for _, u := range p.Units {
		if err := h.inventorySvc.SetThreshold(ctx, p.ID, u.UnitType, u.MinStockLevel); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// DeleteProduct deletes a product
func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	return h.productSvc.Delete(ctx, cmd.ProductID)
}

// SetProductImage points a product at a new image
func (h *Handler) SetProductImage(ctx context.Context, productID, imageURL string) error {
	return h.productSvc.SetImage(ctx, productID, imageURL)
}

// AdjustStock applies a manual stock correction to an existing product unit
func (h *Handler) AdjustStock(ctx context.Context, cmd AdjustStock) (*inventory.Inventory, error) {
	p, err := h.productSvc.Get(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if _, err := p.Unit(cmd.UnitType); err != nil {
		return nil, err
	}

	if err := h.inventorySvc.Adjust(ctx, cmd.ProductID, cmd.UnitType, cmd.Delta, cmd.Reason); err != nil {
		return nil, err
	}
	return h.inventorySvc.Get(ctx, cmd.ProductID, cmd.UnitType)
}

// AddToCart adds an item to cart at the unit's current price
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (*cart.Cart, error) {
	if cmd.Quantity <= 0 {
		return nil, cart.ErrInvalidQuantity
	}

	// Get unit and price from read store
	item, err := h.catalog.ResolveCartItem(cmd.ProductID, cmd.UnitType)
	if err != nil {
		return nil, err
	}

	// Emit ItemAddedToCart event
	return h.cartSvc.AddItem(ctx, cmd.UserID, cart.CartItem{
		ProductID: item.ProductID,
		UnitType:  item.UnitType,
		Name:      item.Name,
		Quantity:  cmd.Quantity,
		Price:     item.Price,
	})
}

// resolveUnit fills in the default unit when the caller left it empty
func (h *Handler) resolveUnit(productID, unitType string) (string, error) {
	if unitType != "" {
		return unitType, nil
	}
	item, err := h.catalog.ResolveCartItem(productID, "")
	if err != nil {
		return "", err
	}
	return item.UnitType, nil
}

// UpdateCartItem sets the quantity of a cart line; zero or less removes it
func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) (*cart.Cart, error) {
	unitType, err := h.resolveUnit(cmd.ProductID, cmd.UnitType)
	if err != nil {
		return nil, err
	}
	return h.cartSvc.UpdateItem(ctx, cmd.UserID, cmd.ProductID, unitType, cmd.Quantity)
}

// RemoveFromCart removes an item from cart
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (*cart.Cart, error) {
	unitType, err := h.resolveUnit(cmd.ProductID, cmd.UnitType)
	if err != nil {
		return nil, err
	}
	return h.cartSvc.RemoveItem(ctx, cmd.UserID, cmd.ProductID, unitType)
}

// ClearCart clears all items from cart
func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) error {
	return h.cartSvc.Clear(ctx, cmd.UserID)
}

// GetCart loads the user's cart from the event store
func (h *Handler) GetCart(ctx context.Context, userID string) (*cart.Cart, error) {
	return h.cartSvc.Get(ctx, userID)
}

// PlaceOrder turns the user's cart into an order and reserves its stock.
// If a reservation fails the order is cancelled and earlier reservations are released.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	// Read the cart from the event store so a just-added item is never missed
	c, err := h.cartSvc.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}

	// Convert cart items to order items
	items := make([]order.OrderItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, order.OrderItem{
			ProductID: item.ProductID,
			UnitType:  item.UnitType,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	// Fail fast before any event is written
	for _, item := range items {
		inv, err := h.inventorySvc.Get(ctx, item.ProductID, item.UnitType)
		if err != nil {
			return nil, err
		}
		if inv.AvailableStock() < item.Quantity {
			return nil, fmt.Errorf("%s (%s): %w", item.Name, item.UnitType, inventory.ErrInsufficientStock)
		}
	}

	// Place order (emits OrderPlaced event)
	o, err := h.orderSvc.Place(ctx, cmd.UserID, items, cmd.ShippingAddress)
	if err != nil {
		return nil, err
	}

	// Reserve inventory for each item (emits StockReserved events)
	for i, item := range items {
		if err := h.inventorySvc.Reserve(ctx, item.ProductID, item.UnitType, o.ID, item.Quantity); err != nil {
			h.releaseItems(ctx, o.ID, items[:i])
			if _, cancelErr := h.orderSvc.Cancel(ctx, o.ID, "stock reservation failed"); cancelErr != nil {
				log.Printf("[Command] Failed to cancel order %s after reservation failure: %v", o.ID, cancelErr)
			}
			return nil, fmt.Errorf("%s (%s): %w", item.Name, item.UnitType, err)
		}
	}

	// Clear cart (emits CartCleared event)
	if err := h.cartSvc.Clear(ctx, cmd.UserID); err != nil {
		log.Printf("[Command] Order %s placed but cart of %s was not cleared: %v", o.ID, cmd.UserID, err)
	}

	return o, nil
}

func (h *Handler) releaseItems(ctx context.Context, orderID string, items []order.OrderItem) error {
	var errs []error
	for _, item := range items {
		if err := h.inventorySvc.Release(ctx, item.ProductID, item.UnitType, orderID, item.Quantity); err != nil {
			log.Printf("[Command] Failed to release %s/%s for order %s: %v", item.ProductID, item.UnitType, orderID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PayOrder marks an order as paid
func (h *Handler) PayOrder(ctx context.Context, cmd PayOrder) (*order.Order, error) {
	return h.orderSvc.Pay(ctx, cmd.OrderID)
}

// ShipOrder ships an order and deducts its reserved stock
func (h *Handler) ShipOrder(ctx context.Context, cmd ShipOrder) (*order.Order, error) {
	o, err := h.orderSvc.Ship(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, item := range o.Items {
		if err := h.inventorySvc.Deduct(ctx, item.ProductID, item.UnitType, o.ID, item.Quantity); err != nil {
			log.Printf("[Command] Failed to deduct %s/%s for order %s: %v", item.ProductID, item.UnitType, o.ID, err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return o, fmt.Errorf("order %s shipped but stock was not fully deducted: %w", o.ID, err)
	}
	return o, nil
}

// DeliverOrder marks a shipped order as delivered
func (h *Handler) DeliverOrder(ctx context.Context, cmd DeliverOrder) (*order.Order, error) {
	return h.orderSvc.Deliver(ctx, cmd.OrderID)
}

// CancelOrder cancels an order and releases its reserved stock
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*order.Order, error) {
	if cmd.UserID != "" {
		existing, err := h.orderSvc.Get(ctx, cmd.OrderID)
		if err != nil {
			return nil, err
		}
		if existing.UserID != cmd.UserID {
			return nil, order.ErrOrderNotFound
		}
	}

	// Cancel order (emits OrderCancelled event); shipped orders are rejected here
	o, err := h.orderSvc.Cancel(ctx, cmd.OrderID, cmd.Reason)
	if err != nil {
		return nil, err
	}

	// Release inventory (emits StockReleased events)
	if err := h.releaseItems(ctx, o.ID, o.Items); err != nil {
		return o, fmt.Errorf("order %s cancelled but stock was not fully released: %w", o.ID, err)
	}
	return o, nil
}

// CreatePurchaseOrder records an order to a supplier for existing product units
func (h *Handler) CreatePurchaseOrder(ctx context.Context, cmd CreatePurchaseOrder) (*purchase.PurchaseOrder, error) {
	for _, line := range cmd.Lines {
		p, err := h.productSvc.Get(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if _, err := p.Unit(line.UnitType); err != nil {
			return nil, fmt.Errorf("%s: %w", line.ProductID, err)
		}
	}
	return h.purchaseSvc.Create(ctx, cmd.Supplier, cmd.Lines)
}

// ReceivePurchaseOrder marks a purchase order received and adds its lines to stock
func (h *Handler) ReceivePurchaseOrder(ctx context.Context, cmd ReceivePurchaseOrder) (*purchase.PurchaseOrder, error) {
	po, err := h.purchaseSvc.Receive(ctx, cmd.PurchaseOrderID)
	if err != nil {
		return nil, err
	}

	reference := "purchase order " + po.ID
	for _, line := range po.Lines {
		if err := h.inventorySvc.AddStock(ctx, line.ProductID, line.UnitType, line.Quantity, reference); err != nil {
			return po, fmt.Errorf("purchase order %s received but stock was not fully added: %w", po.ID, err)
		}
	}
	return po, nil
}

func (h *Handler) CancelPurchaseOrder(ctx context.Context, cmd CancelPurchaseOrder) (*purchase.PurchaseOrder, error) {
	return h.purchaseSvc.Cancel(ctx, cmd.PurchaseOrderID, cmd.Reason)
}
