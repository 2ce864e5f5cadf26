package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/grocery-shop/internal/domain/inventory"
	"github.com/example/grocery-shop/internal/domain/order"
	"github.com/example/grocery-shop/internal/email"
	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/readmodel"
	"github.com/example/grocery-shop/internal/stock"
)

// Mailer sends the notification emails
type Mailer interface {
	SendOrderConfirmation(to string, o email.Order) error
	SendLowStockAlert(to string, a email.StockAlert) error
}

// Handler processes events for sending notifications
type Handler struct {
	mailer     Mailer
	readStore  store.ReadStoreInterface
	alertEmail string
}

// NewHandler creates a new notification handler. Stock alerts go to alertEmail.
func NewHandler(mailer Mailer, readStore store.ReadStoreInterface, alertEmail string) *Handler {
	return &Handler{
		mailer:     mailer,
		readStore:  readStore,
		alertEmail: alertEmail,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch {
	case event.EventType == order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case event.AggregateType == inventory.AggregateType && event.EventType != inventory.EventThresholdSet:
		return h.handleStockMovement(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing OrderPlaced event for order %s, user %s", e.OrderID, e.UserID)

	// The user may not be projected yet; a missing user is skipped, not retried
	userData, exists, err := h.readStore.Get(readmodel.Users, e.UserID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", e.UserID, err)
		return nil
	}
	if !exists {
		log.Printf("[Notifier] User not found: %s", e.UserID)
		return nil
	}
	u, ok := userData.(*readmodel.UserReadModel)
	if !ok {
		log.Printf("[Notifier] Invalid user data type for user: %s", e.UserID)
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		name := item.Name
		if name == "" {
			name = h.productName(item.ProductID)
		}
		items[i] = email.OrderItem{
			Name:     name,
			UnitType: item.UnitType,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}

	if err := h.mailer.SendOrderConfirmation(u.Email, email.Order{
		ID:              e.OrderID,
		CustomerName:    u.Name,
		Items:           items,
		Total:           e.Total,
		ShippingAddress: e.ShippingAddress,
	}); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", u.Email, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation email sent to %s for order %s", u.Email, e.OrderID)
	return nil
}

// handleStockMovement alerts the back office when a movement newly puts a unit
// into low or out of stock
func (h *Handler) handleStockMovement(event store.Event) error {
	var m inventory.Movement
	if err := json.Unmarshal(event.Data, &m); err != nil {
		log.Printf("[Notifier] Failed to unmarshal %s event: %v", event.EventType, err)
		return err
	}

	status, worsened := stock.Transition(m.AvailableBefore, m.AvailableAfter, m.MinStockLevel)
	if !worsened {
		return nil
	}
	if h.alertEmail == "" {
		log.Printf("[Notifier] %s is %s but no alert address is configured", m.InventoryID, status)
		return nil
	}

	alert := email.StockAlert{
		ProductID:     m.ProductID,
		ProductName:   h.productName(m.ProductID),
		UnitType:      m.UnitType,
		StockQuantity: m.AvailableAfter,
		MinStockLevel: m.MinStockLevel,
		Status:        string(status),
	}
	if err := h.mailer.SendLowStockAlert(h.alertEmail, alert); err != nil {
		log.Printf("[Notifier] Failed to send stock alert for %s: %v", m.InventoryID, err)
		return err
	}

	log.Printf("[Notifier] Stock alert sent for %s (%s)", m.InventoryID, status)
	return nil
}

func (h *Handler) productName(productID string) string {
	data, exists, err := h.readStore.Get(readmodel.Products, productID)
	if err != nil || !exists {
		return productID
	}
	if p, ok := data.(*readmodel.ProductReadModel); ok {
		return p.Name
	}
	return productID
}
