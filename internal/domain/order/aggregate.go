package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/example/grocery-shop/internal/domain/aggregate"
	"github.com/example/grocery-shop/internal/infrastructure/store"
)

const AggregateType = "Order"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every order status in lifecycle order
var Statuses = []Status{StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled}

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrEmptyOrder       = errors.New("order must have at least one item")
	ErrInvalidItem      = errors.New("order item needs a product, a positive quantity and a price")
	ErrInvalidStatus    = errors.New("invalid order status transition")
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	ErrOrderNotPaid     = errors.New("order must be paid before shipping")
	ErrOrderNotShipped  = errors.New("order must be shipped before delivery")
	ErrOrderShipped     = errors.New("cannot cancel shipped order")
	ErrOrderCancelled   = errors.New("order is already cancelled")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {}, // terminal state
	StatusCancelled: {}, // terminal state
}

type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Items           []OrderItem `json:"items"`
	Total           int         `json:"total"`
	Status          Status      `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	CancelReason    string      `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Version         int         `json:"version"` // Current event version
}

// Aggregate interface implementation
func (o *Order) GetID() string    { return o.ID }
func (o *Order) GetVersion() int  { return o.Version }
func (o *Order) SetVersion(v int) { o.Version = v }

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	return slices.Contains(validTransitions[o.Status], target)
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case (o.Status == StatusShipped || o.Status == StatusDelivered) && target == StatusCancelled:
		return ErrOrderShipped
	case o.Status != StatusPending && target == StatusPaid:
		return ErrOrderAlreadyPaid
	case o.Status == StatusPending && target == StatusShipped:
		return ErrOrderNotPaid
	case target == StatusDelivered && o.Status != StatusShipped:
		return ErrOrderNotShipped
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
}

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderPlaced:
		var data OrderPlaced
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.ID = data.OrderID
		o.UserID = data.UserID
		o.Items = data.Items
		o.Total = data.Total
		o.ShippingAddress = data.ShippingAddress
		o.Status = StatusPending
		o.CreatedAt = data.PlacedAt
		o.UpdatedAt = data.PlacedAt
	case EventOrderPaid:
		var data OrderPaid
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusPaid
		o.UpdatedAt = data.PaidAt
	case EventOrderShipped:
		var data OrderShipped
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusShipped
		o.UpdatedAt = data.ShippedAt
	case EventOrderDelivered:
		var data OrderDelivered
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusDelivered
		o.UpdatedAt = data.DeliveredAt
	case EventOrderCancelled:
		var data OrderCancelled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.CancelReason = data.Reason
		o.UpdatedAt = data.CancelledAt
	}
	o.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get loads an order by replaying events, using snapshot if available
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	order, found, err := aggregate.LoadAggregate(ctx, s.eventStore, orderID, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) Place(ctx context.Context, userID string, items []OrderItem, shippingAddress string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	var total int
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 || item.Price < 0 {
			return nil, ErrInvalidItem
		}
		total += item.Price * item.Quantity
	}

	order := &Order{ID: uuid.New().String()}
	event := OrderPlaced{
		OrderID:         order.ID,
		UserID:          userID,
		Items:           items,
		Total:           total,
		ShippingAddress: shippingAddress,
		PlacedAt:        time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, order, AggregateType, EventOrderPlaced, event); err != nil {
		return nil, err
	}
	return order, nil
}

// transition loads an order, checks the status machine and commits the event
func (s *Service) transition(ctx context.Context, orderID string, target Status, eventType string, data any) (*Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransitionTo(target) {
		return nil, order.transitionError(target)
	}
	if err := aggregate.Commit(ctx, s.eventStore, order, AggregateType, eventType, data); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) Pay(ctx context.Context, orderID string) (*Order, error) {
	return s.transition(ctx, orderID, StatusPaid, EventOrderPaid, OrderPaid{
		OrderID: orderID,
		PaidAt:  time.Now(),
	})
}

func (s *Service) Ship(ctx context.Context, orderID string) (*Order, error) {
	return s.transition(ctx, orderID, StatusShipped, EventOrderShipped, OrderShipped{
		OrderID:   orderID,
		ShippedAt: time.Now(),
	})
}

func (s *Service) Deliver(ctx context.Context, orderID string) (*Order, error) {
	return s.transition(ctx, orderID, StatusDelivered, EventOrderDelivered, OrderDelivered{
		OrderID:     orderID,
		DeliveredAt: time.Now(),
	})
}

func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*Order, error) {
	return s.transition(ctx, orderID, StatusCancelled, EventOrderCancelled, OrderCancelled{
		OrderID:     orderID,
		Reason:      reason,
		CancelledAt: time.Now(),
	})
}
