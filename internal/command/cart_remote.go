package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/grocery-shop/internal/cartsync"
	"github.com/example/grocery-shop/internal/domain/cart"
	"github.com/example/grocery-shop/internal/query"
)

// CartRemote is the in-process server cart of one user
type CartRemote struct {
	handler *Handler
	userID  string
}

var _ cartsync.RemoteCart = (*CartRemote)(nil)

// CartRemote returns the server cart of userID as a cartsync.RemoteCart
func (h *Handler) CartRemote(userID string) *CartRemote {
	return &CartRemote{handler: h, userID: userID}
}

func toItems(c *cart.Cart) []cartsync.Item {
	items := make([]cartsync.Item, 0, len(c.Items))
	for _, i := range c.Items {
		items = append(items, cartsync.Item{
			ProductID:  i.ProductID,
			UnitType:   i.UnitType,
			Name:       i.Name,
			Quantity:   i.Quantity,
			Price:      i.Price,
			TotalPrice: i.TotalPrice(),
		})
	}
	return items
}

func (r *CartRemote) GetCart(ctx context.Context) ([]cartsync.Item, error) {
	c, err := r.handler.GetCart(ctx, r.userID)
	if err != nil {
		return nil, err
	}
	return toItems(c), nil
}

func (r *CartRemote) AddItem(ctx context.Context, productID, unitType string, quantity int) ([]cartsync.Item, error) {
	c, err := r.handler.AddToCart(ctx, AddToCart{
		UserID:    r.userID,
		ProductID: productID,
		UnitType:  unitType,
		Quantity:  quantity,
	})
	if errors.Is(err, query.ErrNotFound) || errors.Is(err, query.ErrUnitNotFound) {
		return nil, fmt.Errorf("%w: %w", cartsync.ErrItemRejected, err)
	}
	if err != nil {
		return nil, err
	}
	return toItems(c), nil
}

func (r *CartRemote) UpdateItem(ctx context.Context, productID, unitType string, quantity int) ([]cartsync.Item, error) {
	c, err := r.handler.UpdateCartItem(ctx, UpdateCartItem{
		UserID:    r.userID,
		ProductID: productID,
		UnitType:  unitType,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, err
	}
	return toItems(c), nil
}

func (r *CartRemote) RemoveItem(ctx context.Context, productID, unitType string) ([]cartsync.Item, error) {
	c, err := r.handler.RemoveFromCart(ctx, RemoveFromCart{
		UserID:    r.userID,
		ProductID: productID,
		UnitType:  unitType,
	})
	if err != nil {
		return nil, err
	}
	return toItems(c), nil
}

func (r *CartRemote) ClearCart(ctx context.Context) error {
	return r.handler.ClearCart(ctx, ClearCart{UserID: r.userID})
}
