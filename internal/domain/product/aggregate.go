package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/grocery-shop/internal/domain/aggregate"
	"github.com/example/grocery-shop/internal/infrastructure/store"
)

const AggregateType = "Product"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrInvalidCostPrice = errors.New("cost price must not be negative")
	ErrInvalidMinStock  = errors.New("minimum stock level must not be negative")
	ErrInvalidName      = errors.New("name is required")
	ErrNoUnits          = errors.New("product must have at least one unit")
	ErrInvalidUnitType  = errors.New("unit type is required")
	ErrDuplicateUnit    = errors.New("duplicate unit type")
	ErrUnitNotFound     = errors.New("unit not found")
)

// Unit is a purchasable variant of a product (a package size or measure)
type Unit struct {
	UnitType      string `json:"unit_type"`
	Price         int    `json:"price"`
	CostPrice     int    `json:"cost_price"`
	MinStockLevel int    `json:"min_stock_level"`
}

// Details are the editable fields of a product
type Details struct {
	Name        string
	Description string
	Category    string
	ImageURL    string
	Units       []Unit
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	Units       []Unit    `json:"units"`
	IsDeleted   bool      `json:"is_deleted,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// Aggregate interface implementation
func (p *Product) GetID() string    { return p.ID }
func (p *Product) GetVersion() int  { return p.Version }
func (p *Product) SetVersion(v int) { p.Version = v }

// Unit returns the unit with the given type
func (p *Product) Unit(unitType string) (Unit, error) {
	for _, u := range p.Units {
		if u.UnitType == unitType {
			return u, nil
		}
	}
	return Unit{}, fmt.Errorf("%w: %s", ErrUnitNotFound, unitType)
}

// ResolveUnit returns the named unit, or the default unit when unitType is empty
func (p *Product) ResolveUnit(unitType string) (Unit, error) {
	if unitType == "" {
		return DefaultUnit(p.Units)
	}
	return p.Unit(unitType)
}

// DefaultUnit is the first unit of a product
func DefaultUnit(units []Unit) (Unit, error) {
	if len(units) == 0 {
		return Unit{}, ErrNoUnits
	}
	return units[0], nil
}

// ApplyEvent applies a single event to the product state (implements aggregate.Aggregate)
func (p *Product) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventProductCreated:
		var data ProductCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.ID = data.ProductID
		p.Name = data.Name
		p.Description = data.Description
		p.Category = data.Category
		p.ImageURL = data.ImageURL
		p.Units = data.Units
		p.CreatedAt = data.CreatedAt
		p.UpdatedAt = data.CreatedAt
	case EventProductUpdated:
		var data ProductUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.Name = data.Name
		p.Description = data.Description
		p.Category = data.Category
		p.Units = data.Units
		p.UpdatedAt = data.UpdatedAt
	case EventProductImageUpdated:
		var data ProductImageUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.ImageURL = data.ImageURL
		p.UpdatedAt = data.UpdatedAt
	case EventProductDeleted:
		var data ProductDeleted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.IsDeleted = true
		p.UpdatedAt = data.DeletedAt
	}
	p.Version = event.Version
	return nil
}

// ValidateUnits checks that a product has at least one unit and that unit
// types are present and unique.
func ValidateUnits(units []Unit) error {
	if len(units) == 0 {
		return ErrNoUnits
	}
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if strings.TrimSpace(u.UnitType) == "" {
			return ErrInvalidUnitType
		}
		if seen[u.UnitType] {
			return fmt.Errorf("%w: %s", ErrDuplicateUnit, u.UnitType)
		}
		seen[u.UnitType] = true
		if u.Price <= 0 {
			return ErrInvalidPrice
		}
		if u.CostPrice < 0 {
			return ErrInvalidCostPrice
		}
		if u.MinStockLevel < 0 {
			return ErrInvalidMinStock
		}
	}
	return nil
}

func (d Details) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidName
	}
	return ValidateUnits(d.Units)
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get loads a product. Deleted products are reported as not found.
func (s *Service) Get(ctx context.Context, productID string) (*Product, error) {
	p, found, err := aggregate.LoadAggregate(ctx, s.eventStore, productID, func() *Product {
		return &Product{}
	})
	if err != nil {
		return nil, err
	}
	if !found || p.IsDeleted {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, d Details) (*Product, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	p := &Product{ID: uuid.New().String()}
	event := ProductCreated{
		ProductID:   p.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		Units:       d.Units,
		CreatedAt:   time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, p, AggregateType, EventProductCreated, event); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, productID string, d Details) (*Product, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	event := ProductUpdated{
		ProductID:   productID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Units:       d.Units,
		UpdatedAt:   time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, p, AggregateType, EventProductUpdated, event); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SetImage(ctx context.Context, productID, imageURL string) error {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}

	event := ProductImageUpdated{
		ProductID: productID,
		ImageURL:  imageURL,
		UpdatedAt: time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, p, AggregateType, EventProductImageUpdated, event)
}

func (s *Service) Delete(ctx context.Context, productID string) error {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}

	event := ProductDeleted{
		ProductID: productID,
		DeletedAt: time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, p, AggregateType, EventProductDeleted, event)
}
