// Package purchase handles supplier purchase orders that bring stock in.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/grocery-shop/internal/domain/aggregate"
	"github.com/example/grocery-shop/internal/infrastructure/store"
)

const AggregateType = "PurchaseOrder"

type Status string

const (
	StatusOpen      Status = "open"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound        = errors.New("purchase order not found")
	ErrInvalidSupplier = errors.New("supplier is required")
	ErrNoLines         = errors.New("purchase order must have at least one line")
	ErrInvalidLine     = errors.New("line needs a product, a unit, a positive quantity and a non-negative cost")
	ErrNotOpen         = errors.New("purchase order is not open")
)

type PurchaseOrder struct {
	ID         string    `json:"id"`
	Supplier   string    `json:"supplier"`
	Lines      []Line    `json:"lines"`
	TotalCost  int       `json:"total_cost"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int       `json:"version"`
}

// Aggregate interface implementation
func (p *PurchaseOrder) GetID() string    { return p.ID }
func (p *PurchaseOrder) GetVersion() int  { return p.Version }
func (p *PurchaseOrder) SetVersion(v int) { p.Version = v }

// ApplyEvent applies a single event to the purchase order state (implements aggregate.Aggregate)
func (p *PurchaseOrder) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventPurchaseOrderCreated:
		var data PurchaseOrderCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.ID = data.PurchaseOrderID
		p.Supplier = data.Supplier
		p.Lines = data.Lines
		p.TotalCost = data.TotalCost
		p.Status = StatusOpen
		p.CreatedAt = data.CreatedAt
		p.UpdatedAt = data.CreatedAt
	case EventPurchaseOrderReceived:
		var data PurchaseOrderReceived
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.Status = StatusReceived
		p.ReceivedAt = data.ReceivedAt
		p.UpdatedAt = data.ReceivedAt
	case EventPurchaseOrderCancelled:
		var data PurchaseOrderCancelled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.Status = StatusCancelled
		p.UpdatedAt = data.CancelledAt
	}
	p.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) Get(ctx context.Context, id string) (*PurchaseOrder, error) {
	po, found, err := aggregate.LoadAggregate(ctx, s.eventStore, id, func() *PurchaseOrder {
		return &PurchaseOrder{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return po, nil
}

func (s *Service) Create(ctx context.Context, supplier string, lines []Line) (*PurchaseOrder, error) {
	if strings.TrimSpace(supplier) == "" {
		return nil, ErrInvalidSupplier
	}
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	total := 0
	for _, l := range lines {
		if l.ProductID == "" || l.UnitType == "" || l.Quantity <= 0 || l.CostPrice < 0 {
			return nil, ErrInvalidLine
		}
		total += l.Quantity * l.CostPrice
	}

	po := &PurchaseOrder{ID: uuid.New().String()}
	event := PurchaseOrderCreated{
		PurchaseOrderID: po.ID,
		Supplier:        supplier,
		Lines:           lines,
		TotalCost:       total,
		CreatedAt:       time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, po, AggregateType, EventPurchaseOrderCreated, event); err != nil {
		return nil, err
	}
	return po, nil
}

// Receive marks an open purchase order as received
func (s *Service) Receive(ctx context.Context, id string) (*PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != StatusOpen {
		return nil, ErrNotOpen
	}

	event := PurchaseOrderReceived{PurchaseOrderID: id, ReceivedAt: time.Now()}
	if err := aggregate.Commit(ctx, s.eventStore, po, AggregateType, EventPurchaseOrderReceived, event); err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Service) Cancel(ctx context.Context, id, reason string) (*PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != StatusOpen {
		return nil, ErrNotOpen
	}

	event := PurchaseOrderCancelled{PurchaseOrderID: id, Reason: reason, CancelledAt: time.Now()}
	if err := aggregate.Commit(ctx, s.eventStore, po, AggregateType, EventPurchaseOrderCancelled, event); err != nil {
		return nil, err
	}
	return po, nil
}
