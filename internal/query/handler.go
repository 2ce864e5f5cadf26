package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/grocery-shop/internal/domain/cart"
	"github.com/example/grocery-shop/internal/domain/inventory"
	"github.com/example/grocery-shop/internal/domain/order"
	"github.com/example/grocery-shop/internal/domain/user"
	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/readmodel"
	"github.com/example/grocery-shop/internal/stock"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnitNotFound = errors.New("unit not found")
)

type Handler struct {
	readStore store.ReadStoreInterface
}

func NewHandler(readStore store.ReadStoreInterface) *Handler {
	return &Handler{readStore: readStore}
}

func get[T any](rs store.ReadStoreInterface, collection, id string) (*T, error) {
	data, ok, err := rs.Get(collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	model, ok := data.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected %T in %s", data, collection)
	}
	return model, nil
}

func cast[T any](collection string, items []any) ([]*T, error) {
	models := make([]*T, 0, len(items))
	for _, item := range items {
		model, ok := item.(*T)
		if !ok {
			return nil, fmt.Errorf("unexpected %T in %s", item, collection)
		}
		models = append(models, model)
	}
	return models, nil
}

func list[T any](rs store.ReadStoreInterface, collection string) ([]*T, error) {
	items, err := rs.GetAll(collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return cast[T](collection, items)
}

func findBy[T any](rs store.ReadStoreInterface, collection, field, value string) ([]*T, error) {
	items, err := rs.FindBy(collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", collection, field, err)
	}
	return cast[T](collection, items)
}

// Products

// ProductFilter narrows the product list. Empty fields match everything.
type ProductFilter struct {
	Category string
	Search   string
}

func (f ProductFilter) matches(p *readmodel.ProductReadModel) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
	}
	return true
}

func (h *Handler) GetProduct(id string) (*readmodel.ProductReadModel, error) {
	return get[readmodel.ProductReadModel](h.readStore, readmodel.Products, id)
}

// ListProducts returns the matching products ordered by name
func (h *Handler) ListProducts(filter ProductFilter) ([]*readmodel.ProductReadModel, error) {
	all, err := list[readmodel.ProductReadModel](h.readStore, readmodel.Products)
	if err != nil {
		return nil, err
	}

	products := make([]*readmodel.ProductReadModel, 0, len(all))
	for _, p := range all {
		if filter.matches(p) {
			products = append(products, p)
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return products, nil
}

// ListCategories returns the distinct product categories in alphabetical order
func (h *Handler) ListCategories() ([]string, error) {
	products, err := list[readmodel.ProductReadModel](h.readStore, readmodel.Products)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	categories := []string{}
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// ResolvedItem is what a cart needs to know about a product unit at add time
type ResolvedItem struct {
	ProductID string
	UnitType  string
	Name      string
	Price     int
}

// ResolveCartItem looks up the unit and its current price. An empty unit
// type resolves to the product's first unit.
func (h *Handler) ResolveCartItem(productID, unitType string) (ResolvedItem, error) {
	p, err := h.GetProduct(productID)
	if err != nil {
		return ResolvedItem{}, err
	}
	if len(p.Units) == 0 {
		return ResolvedItem{}, ErrUnitNotFound
	}

	u := &p.Units[0]
	if unitType != "" {
		var ok bool
		if u, ok = p.Unit(unitType); !ok {
			return ResolvedItem{}, fmt.Errorf("%s of %s: %w", unitType, productID, ErrUnitNotFound)
		}
	}
	return ResolvedItem{
		ProductID: p.ID,
		UnitType:  u.UnitType,
		Name:      p.Name,
		Price:     u.Price,
	}, nil
}

// Cart

// GetCart returns the user's server cart, or an empty one
func (h *Handler) GetCart(userID string) (*readmodel.CartReadModel, error) {
	cartID := cart.GetCartID(userID)
	c, err := get[readmodel.CartReadModel](h.readStore, readmodel.Carts, cartID)
	if errors.Is(err, ErrNotFound) {
		return &readmodel.CartReadModel{
			ID:     cartID,
			UserID: userID,
			Items:  []readmodel.CartItemReadModel{},
		}, nil
	}
	return c, err
}

// Orders

func (h *Handler) GetOrder(id string) (*readmodel.OrderReadModel, error) {
	return get[readmodel.OrderReadModel](h.readStore, readmodel.Orders, id)
}

// ListOrdersByUser returns a user's orders, newest first
func (h *Handler) ListOrdersByUser(userID string) ([]*readmodel.OrderReadModel, error) {
	orders, err := findBy[readmodel.OrderReadModel](h.readStore, readmodel.Orders, "user_id", userID)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

// ListOrders returns all orders, newest first, optionally filtered by status (for admin use)
func (h *Handler) ListOrders(status string) ([]*readmodel.OrderReadModel, error) {
	var (
		orders []*readmodel.OrderReadModel
		err    error
	)
	if status == "" {
		orders, err = list[readmodel.OrderReadModel](h.readStore, readmodel.Orders)
	} else {
		orders, err = findBy[readmodel.OrderReadModel](h.readStore, readmodel.Orders, "status", status)
	}
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

func sortOrders(orders []*readmodel.OrderReadModel) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// Inventory

func (h *Handler) GetInventory(productID, unitType string) (*readmodel.InventoryReadModel, error) {
	return get[readmodel.InventoryReadModel](h.readStore, readmodel.Inventory, inventory.ID(productID, unitType))
}

func (h *Handler) ListInventory() ([]*readmodel.InventoryReadModel, error) {
	return list[readmodel.InventoryReadModel](h.readStore, readmodel.Inventory)
}

func stockProducts(products []*readmodel.ProductReadModel) []stock.Product {
	out := make([]stock.Product, 0, len(products))
	for _, p := range products {
		sp := stock.Product{ID: p.ID, Name: p.Name, Units: make([]stock.Unit, 0, len(p.Units))}
		for _, u := range p.Units {
			sp.Units = append(sp.Units, stock.Unit{
				UnitType:      u.UnitType,
				StockQuantity: u.StockQuantity,
				MinStockLevel: u.MinStockLevel,
			})
		}
		out = append(out, sp)
	}
	return out
}

// LowStockFeed lists every unit at or below its minimum level, most severe first
func (h *Handler) LowStockFeed() ([]stock.Alert, error) {
	products, err := h.ListProducts(ProductFilter{})
	if err != nil {
		return nil, err
	}
	return stock.BuildLowStockFeed(stockProducts(products)), nil
}

func (h *Handler) StockSummary() (stock.Summary, error) {
	products, err := list[readmodel.ProductReadModel](h.readStore, readmodel.Products)
	if err != nil {
		return stock.Summary{}, err
	}
	return stock.Summarize(stockProducts(products)), nil
}

// Reports

// StatusTotals is the order count and value for one order status
type StatusTotals struct {
	Orders int `json:"orders"`
	Value  int `json:"value"`
}

// SalesReport aggregates orders. Revenue counts paid, shipped and delivered orders.
type SalesReport struct {
	Orders   int                     `json:"orders"`
	Revenue  int                     `json:"revenue"`
	ByStatus map[string]StatusTotals `json:"by_status"`
}

func (h *Handler) SalesReport() (SalesReport, error) {
	orders, err := list[readmodel.OrderReadModel](h.readStore, readmodel.Orders)
	if err != nil {
		return SalesReport{}, err
	}

	report := SalesReport{ByStatus: make(map[string]StatusTotals)}
	for _, o := range orders {
		report.Orders++
		totals := report.ByStatus[o.Status]
		totals.Orders++
		totals.Value += o.Total
		report.ByStatus[o.Status] = totals

		switch o.Status {
		case string(order.StatusPaid), string(order.StatusShipped), string(order.StatusDelivered):
			report.Revenue += o.Total
		}
	}
	return report, nil
}

// Users

func (h *Handler) GetUser(id string) (*readmodel.UserReadModel, error) {
	return get[readmodel.UserReadModel](h.readStore, readmodel.Users, id)
}

// FindUserByEmail looks a user up by normalized email
func (h *Handler) FindUserByEmail(email string) (*readmodel.UserReadModel, error) {
	users, err := findBy[readmodel.UserReadModel](h.readStore, readmodel.Users, "email", user.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return users[0], nil
}

func (h *Handler) ListUsers() ([]*readmodel.UserReadModel, error) {
	return list[readmodel.UserReadModel](h.readStore, readmodel.Users)
}

func (h *Handler) GetSession(id string) (*readmodel.SessionReadModel, error) {
	return get[readmodel.SessionReadModel](h.readStore, readmodel.Sessions, id)
}

// Purchase orders

func (h *Handler) GetPurchaseOrder(id string) (*readmodel.PurchaseOrderReadModel, error) {
	return get[readmodel.PurchaseOrderReadModel](h.readStore, readmodel.PurchaseOrders, id)
}

// ListPurchaseOrders returns purchase orders, newest first, optionally filtered by status
func (h *Handler) ListPurchaseOrders(status string) ([]*readmodel.PurchaseOrderReadModel, error) {
	var (
		pos []*readmodel.PurchaseOrderReadModel
		err error
	)
	if status == "" {
		pos, err = list[readmodel.PurchaseOrderReadModel](h.readStore, readmodel.PurchaseOrders)
	} else {
		pos, err = findBy[readmodel.PurchaseOrderReadModel](h.readStore, readmodel.PurchaseOrders, "status", status)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pos, func(i, j int) bool {
		return pos[i].CreatedAt.After(pos[j].CreatedAt)
	})
	return pos, nil
}
