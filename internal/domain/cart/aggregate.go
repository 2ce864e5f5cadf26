package cart

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/example/grocery-shop/internal/domain/aggregate"
	"github.com/example/grocery-shop/internal/infrastructure/store"
)

const AggregateType = "Cart"

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrItemNotFound    = errors.New("item not in cart")
)

// CartItem is a line of the server cart, keyed by product and unit
type CartItem struct {
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
}

func (i CartItem) TotalPrice() int {
	return i.Quantity * i.Price
}

type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
	Version   int        `json:"version"`
}

// Aggregate interface implementation
func (c *Cart) GetID() string    { return c.ID }
func (c *Cart) GetVersion() int  { return c.Version }
func (c *Cart) SetVersion(v int) { c.Version = v }

func (c *Cart) indexOf(productID, unitType string) int {
	return slices.IndexFunc(c.Items, func(i CartItem) bool {
		return i.ProductID == productID && i.UnitType == unitType
	})
}

// Total is the sum of price times quantity
func (c *Cart) Total() int {
	total := 0
	for _, item := range c.Items {
		total += item.TotalPrice()
	}
	return total
}

// ItemCount is the sum of quantities
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// ApplyEvent applies a single event to the cart state (implements aggregate.Aggregate)
func (c *Cart) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventItemAdded:
		var data ItemAddedToCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ID = data.CartID
		c.UserID = data.UserID
		c.UpdatedAt = data.AddedAt
		// Same product and unit: sum quantities, latest price wins
		if i := c.indexOf(data.ProductID, data.UnitType); i >= 0 {
			c.Items[i].Quantity += data.Quantity
			c.Items[i].Price = data.Price
			if data.Name != "" {
				c.Items[i].Name = data.Name
			}
		} else {
			c.Items = append(c.Items, CartItem{
				ProductID: data.ProductID,
				UnitType:  data.UnitType,
				Name:      data.Name,
				Quantity:  data.Quantity,
				Price:     data.Price,
			})
		}
	case EventQuantityChanged:
		var data CartItemQuantityChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if i := c.indexOf(data.ProductID, data.UnitType); i >= 0 {
			c.Items[i].Quantity = data.Quantity
		}
		c.UpdatedAt = data.ChangedAt
	case EventItemRemoved:
		var data ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if i := c.indexOf(data.ProductID, data.UnitType); i >= 0 {
			c.Items = slices.Delete(c.Items, i, i+1)
		}
		c.UpdatedAt = data.RemovedAt
	case EventCartCleared:
		var data CartCleared
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.Items = []CartItem{}
		c.UpdatedAt = data.ClearedAt
	}
	c.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// GetCartID returns the cart ID for a user (one server cart per user)
func GetCartID(userID string) string {
	return "cart-" + userID
}

// loadCart replays the cart of a user. A user without events gets an empty cart.
func (s *Service) loadCart(ctx context.Context, userID string) (*Cart, error) {
	cartID := GetCartID(userID)
	cart, _, err := aggregate.LoadAggregate(ctx, s.eventStore, cartID, func() *Cart {
		return &Cart{Items: []CartItem{}}
	})
	if err != nil {
		return nil, err
	}
	cart.ID = cartID
	cart.UserID = userID
	return cart, nil
}

// Get returns the current server cart of a user
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	return s.loadCart(ctx, userID)
}

// AddItem adds an item to the user's cart and returns the resulting cart
func (s *Service) AddItem(ctx context.Context, userID string, item CartItem) (*Cart, error) {
	if item.ProductID == "" {
		return nil, ErrInvalidProduct
	}
	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	event := ItemAddedToCart{
		CartID:    cart.ID,
		UserID:    userID,
		ProductID: item.ProductID,
		UnitType:  item.UnitType,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Price:     item.Price,
		AddedAt:   time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, cart, AggregateType, EventItemAdded, event); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets the quantity of a cart line. A quantity of zero or less removes it.
func (s *Service) UpdateItem(ctx context.Context, userID, productID, unitType string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID, unitType)
	}
	if productID == "" {
		return nil, ErrInvalidProduct
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.indexOf(productID, unitType) < 0 {
		return nil, ErrItemNotFound
	}

	event := CartItemQuantityChanged{
		CartID:    cart.ID,
		UserID:    userID,
		ProductID: productID,
		UnitType:  unitType,
		Quantity:  quantity,
		ChangedAt: time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, cart, AggregateType, EventQuantityChanged, event); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem deletes a cart line. Removing an absent line is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID, productID, unitType string) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.indexOf(productID, unitType) < 0 {
		return cart, nil
	}

	event := ItemRemovedFromCart{
		CartID:    cart.ID,
		UserID:    userID,
		ProductID: productID,
		UnitType:  unitType,
		RemovedAt: time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, cart, AggregateType, EventItemRemoved, event); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear empties the user's cart
func (s *Service) Clear(ctx context.Context, userID string) error {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}

	event := CartCleared{
		CartID:    cart.ID,
		UserID:    userID,
		ClearedAt: time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, cart, AggregateType, EventCartCleared, event)
}
