package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/example/grocery-shop/internal/domain/aggregate"
	"github.com/example/grocery-shop/internal/infrastructure/store"
)

const AggregateType = "Inventory"

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientReserved = errors.New("not enough reserved stock")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidThreshold     = errors.New("minimum stock level must not be negative")
	ErrNegativeStock        = errors.New("adjustment would make stock negative")
	ErrInvalidUnit          = errors.New("product_id and unit_type are required")
)

// Inventory is the stock of one unit of one product
type Inventory struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	UnitType      string    `json:"unit_type"`
	TotalStock    int       `json:"total_stock"`
	ReservedStock int       `json:"reserved_stock"`
	MinStockLevel int       `json:"min_stock_level"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

// Aggregate interface implementation
func (i *Inventory) GetID() string    { return i.ID }
func (i *Inventory) GetVersion() int  { return i.Version }
func (i *Inventory) SetVersion(v int) { i.Version = v }

func (i *Inventory) AvailableStock() int {
	return i.TotalStock - i.ReservedStock
}

// ID returns the aggregate ID of a product unit's inventory
func ID(productID, unitType string) string {
	return productID + ":" + unitType
}

// movement builds the event payload for a change of the given total and reserved deltas
func (i *Inventory) movement(quantity, totalDelta, reservedDelta int) Movement {
	before := i.AvailableStock()
	return Movement{
		InventoryID:     i.ID,
		ProductID:       i.ProductID,
		UnitType:        i.UnitType,
		Quantity:        quantity,
		AvailableBefore: before,
		AvailableAfter:  before + totalDelta - reservedDelta,
		MinStockLevel:   i.MinStockLevel,
	}
}

// ApplyEvent applies a single event to the inventory state (implements aggregate.Aggregate)
func (i *Inventory) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventThresholdSet:
		var data StockThresholdSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.MinStockLevel = data.MinStockLevel
		i.UpdatedAt = data.SetAt
	case EventStockAdded:
		var data StockAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.TotalStock += data.Quantity
		i.UpdatedAt = data.AddedAt
	case EventStockReserved:
		var data StockReserved
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.ReservedStock += data.Quantity
		i.UpdatedAt = data.ReservedAt
	case EventStockReleased:
		var data StockReleased
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.ReservedStock = max(i.ReservedStock-data.Quantity, 0)
		i.UpdatedAt = data.ReleasedAt
	case EventStockDeducted:
		var data StockDeducted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.TotalStock = max(i.TotalStock-data.Quantity, 0)
		i.ReservedStock = max(i.ReservedStock-data.Quantity, 0)
		i.UpdatedAt = data.DeductedAt
	case EventStockAdjusted:
		var data StockAdjusted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.TotalStock = max(i.TotalStock+data.Quantity, 0)
		i.UpdatedAt = data.AdjustedAt
	}
	i.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get returns the inventory of a product unit. A unit without events has no stock.
func (s *Service) Get(ctx context.Context, productID, unitType string) (*Inventory, error) {
	if productID == "" || unitType == "" {
		return nil, ErrInvalidUnit
	}
	id := ID(productID, unitType)
	inv, _, err := aggregate.LoadAggregate(ctx, s.eventStore, id, func() *Inventory {
		return &Inventory{}
	})
	if err != nil {
		return nil, err
	}
	inv.ID = id
	inv.ProductID = productID
	inv.UnitType = unitType
	return inv, nil
}

// SetThreshold records the minimum stock level of a unit. Unchanged levels emit nothing.
func (s *Service) SetThreshold(ctx context.Context, productID, unitType string, minStockLevel int) error {
	if minStockLevel < 0 {
		return ErrInvalidThreshold
	}
	inv, err := s.Get(ctx, productID, unitType)
	if err != nil {
		return err
	}
	if inv.Version > 0 && inv.MinStockLevel == minStockLevel {
		return nil
	}

	event := StockThresholdSet{
		InventoryID:   inv.ID,
		ProductID:     productID,
		UnitType:      unitType,
		MinStockLevel: minStockLevel,
		SetAt:         time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, inv, AggregateType, EventThresholdSet, event)
}

// AddStock receives stock. reference names the source (a purchase order, "initial").
func (s *Service) AddStock(ctx context.Context, productID, unitType string, quantity int, reference string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return aggregate.Retry(ctx, func() error {
		inv, err := s.Get(ctx, productID, unitType)
		if err != nil {
			return err
		}

		event := StockAdded{
			Movement:  inv.movement(quantity, quantity, 0),
			Reference: reference,
			AddedAt:   time.Now(),
		}
		return aggregate.Commit(ctx, s.eventStore, inv, AggregateType, EventStockAdded, event)
	})
}

// Reserve holds stock for an order
func (s *Service) Reserve(ctx context.Context, productID, unitType, orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return aggregate.Retry(ctx, func() error {
		inv, err := s.Get(ctx, productID, unitType)
		if err != nil {
			return err
		}
		if inv.AvailableStock() < quantity {
			return ErrInsufficientStock
		}

		event := StockReserved{
			Movement:   inv.movement(quantity, 0, quantity),
			OrderID:    orderID,
			ReservedAt: time.Now(),
		}
		return aggregate.Commit(ctx, s.eventStore, inv, AggregateType, EventStockReserved, event)
	})
}

// Release returns reserved stock to available stock
func (s *Service) Release(ctx context.Context, productID, unitType, orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return aggregate.Retry(ctx, func() error {
		inv, err := s.Get(ctx, productID, unitType)
		if err != nil {
			return err
		}
		if inv.ReservedStock < quantity {
			return ErrInsufficientReserved
		}

		event := StockReleased{
			Movement:   inv.movement(quantity, 0, -quantity),
			OrderID:    orderID,
			ReleasedAt: time.Now(),
		}
		return aggregate.Commit(ctx, s.eventStore, inv, AggregateType, EventStockReleased, event)
	})
}

// Deduct removes reserved stock that left the warehouse
func (s *Service) Deduct(ctx context.Context, productID, unitType, orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return aggregate.Retry(ctx, func() error {
		inv, err := s.Get(ctx, productID, unitType)
		if err != nil {
			return err
		}
		if inv.ReservedStock < quantity {
			return ErrInsufficientReserved
		}

		event := StockDeducted{
			Movement:   inv.movement(quantity, -quantity, -quantity),
			OrderID:    orderID,
			DeductedAt: time.Now(),
		}
		return aggregate.Commit(ctx, s.eventStore, inv, AggregateType, EventStockDeducted, event)
	})
}

// Adjust corrects on-hand stock by delta. Stock cannot drop below what is reserved.
func (s *Service) Adjust(ctx context.Context, productID, unitType string, delta int, reason string) error {
	if delta == 0 {
		return ErrInvalidQuantity
	}
	return aggregate.Retry(ctx, func() error {
		inv, err := s.Get(ctx, productID, unitType)
		if err != nil {
			return err
		}
		if inv.AvailableStock()+delta < 0 {
			return ErrNegativeStock
		}

		event := StockAdjusted{
			Movement:   inv.movement(delta, delta, 0),
			Reason:     reason,
			AdjustedAt: time.Now(),
		}
		return aggregate.Commit(ctx, s.eventStore, inv, AggregateType, EventStockAdjusted, event)
	})
}
