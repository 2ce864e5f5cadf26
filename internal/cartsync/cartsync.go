// Package cartsync keeps one view of the current cart across the anonymous
// to authenticated transition and merges a guest cart into the server cart.
package cartsync

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrRemoteUnavailable = errors.New("remote cart unavailable")
	ErrLocalUnavailable  = errors.New("local cart unavailable")
	ErrInvalidQuantity   = errors.New("quantity must be positive")

	// ErrItemRejected is wrapped by RemoteCart implementations when the server
	// will never accept an item, for example because its product was deleted.
	ErrItemRejected = errors.New("item rejected by server cart")
)

// Item is a cart line. ProductID and UnitType form its identity.
type Item struct {
	ProductID  string `json:"product_id"`
	UnitType   string `json:"unit_type"`
	Name       string `json:"name,omitempty"`
	Quantity   int    `json:"quantity"`
	Price      int    `json:"price"`
	TotalPrice int    `json:"total_price"`
}

func (i Item) sameKey(productID, unitType string) bool {
	return i.ProductID == productID && i.UnitType == unitType
}

// RemoteCart is the server-held cart of an authenticated account
type RemoteCart interface {
	GetCart(ctx context.Context) ([]Item, error)
	AddItem(ctx context.Context, productID, unitType string, quantity int) ([]Item, error)
	UpdateItem(ctx context.Context, productID, unitType string, quantity int) ([]Item, error)
	RemoveItem(ctx context.Context, productID, unitType string) ([]Item, error)
	ClearCart(ctx context.Context) error
}

// LocalStore persists the anonymous cart of one session
type LocalStore interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
	Clear(ctx context.Context) error
}

// MergeResult describes a merge. Skipped items were rejected by the server
// and dropped. Remaining items are still in the local store after a failure.
type MergeResult struct {
	Merged    int    `json:"merged"`
	Skipped   int    `json:"skipped"`
	Remaining int    `json:"remaining"`
	Items     []Item `json:"items"`
}

// MergeError reports a merge that stopped at the first failed submission.
// Remaining items are left in the local store so the merge can be retried.
type MergeError struct {
	Merged    int
	Skipped   int
	Remaining int
	Err       error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("cart merge stopped after %d of %d items: %v",
		e.Merged+e.Skipped, e.Merged+e.Skipped+e.Remaining, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

func remoteErr(err error) error {
	return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
}

func localErr(err error) error {
	return fmt.Errorf("%w: %w", ErrLocalUnavailable, err)
}
