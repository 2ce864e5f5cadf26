package cartsync

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"
)

var errNoRemote = errors.New("no server cart for this session")

// Reconciler serves cart operations from whichever store is authoritative.
// It is scoped to one session and serialises its operations.
type Reconciler struct {
	mu            sync.Mutex
	local         LocalStore
	remote        RemoteCart
	authenticated bool
	items         []Item
}

// NewReconciler creates a reconciler. remote may be nil for anonymous sessions.
func NewReconciler(local LocalStore, remote RemoteCart) *Reconciler {
	return &Reconciler{
		local:  local,
		remote: remote,
		items:  []Item{},
	}
}

// SetAuthStatus selects the authoritative store. It moves no data.
func (r *Reconciler) SetAuthStatus(authenticated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authenticated = authenticated
}

func (r *Reconciler) IsAuthenticated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authenticated
}

// Load fills the view from the authoritative store
func (r *Reconciler) Load(ctx context.Context) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.authenticated {
		remote, err := r.server()
		if err != nil {
			return r.snapshot(), err
		}
		items, err := remote.GetCart(ctx)
		if err != nil {
			return r.snapshot(), remoteErr(err)
		}
		return r.replace(items), nil
	}

	items, err := r.local.Load(ctx)
	if err != nil {
		return r.snapshot(), localErr(err)
	}
	return r.replace(items), nil
}

// AddItem adds item to the authoritative store. Locally, an existing entry
// with the same product and unit has its quantity summed and takes the new price.
func (r *Reconciler) AddItem(ctx context.Context, item Item) ([]Item, error) {
	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.authenticated {
		remote, err := r.server()
		if err != nil {
			return r.snapshot(), err
		}
		items, err := remote.AddItem(ctx, item.ProductID, item.UnitType, item.Quantity)
		if err != nil {
			return r.snapshot(), remoteErr(err)
		}
		return r.replace(items), nil
	}

	return r.saveLocal(ctx, mergeItem(r.items, item))
}

// UpdateItem sets the quantity of an entry. A quantity of zero or less removes it.
func (r *Reconciler) UpdateItem(ctx context.Context, productID, unitType string, quantity int) ([]Item, error) {
	if quantity <= 0 {
		return r.RemoveItem(ctx, productID, unitType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.authenticated {
		remote, err := r.server()
		if err != nil {
			return r.snapshot(), err
		}
		items, err := remote.UpdateItem(ctx, productID, unitType, quantity)
		if err != nil {
			return r.snapshot(), remoteErr(err)
		}
		return r.replace(items), nil
	}

	next := r.snapshot()
	for i := range next {
		if next[i].sameKey(productID, unitType) {
			next[i].Quantity = quantity
			next[i].TotalPrice = quantity * next[i].Price
		}
	}
	return r.saveLocal(ctx, next)
}

// RemoveItem deletes an entry from the authoritative store
func (r *Reconciler) RemoveItem(ctx context.Context, productID, unitType string) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.authenticated {
		remote, err := r.server()
		if err != nil {
			return r.snapshot(), err
		}
		items, err := remote.RemoveItem(ctx, productID, unitType)
		if err != nil {
			return r.snapshot(), remoteErr(err)
		}
		return r.replace(items), nil
	}

	next := slices.DeleteFunc(r.snapshot(), func(i Item) bool {
		return i.sameKey(productID, unitType)
	})
	return r.saveLocal(ctx, next)
}

// ClearCart empties the authoritative store
func (r *Reconciler) ClearCart(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.authenticated {
		remote, err := r.server()
		if err != nil {
			return err
		}
		if err := remote.ClearCart(ctx); err != nil {
			return remoteErr(err)
		}
		r.replace(nil)
		return nil
	}

	if err := r.local.Clear(ctx); err != nil {
		return localErr(err)
	}
	r.replace(nil)
	return nil
}

// MergeCart submits every item of the local store to the server cart in
// insertion order, then clears the local store and reloads the view from the
// server. It is a no-op when not authenticated or when the local store is empty.
// Items the server rejects with ErrItemRejected are dropped and counted as
// skipped. On any other failed submission the loop stops, the unsubmitted
// items stay in the local store and a *MergeError is returned.
func (r *Reconciler) MergeCart(ctx context.Context) (MergeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.authenticated {
		return MergeResult{Items: r.snapshot()}, nil
	}

	pending, err := r.local.Load(ctx)
	if err != nil {
		return MergeResult{Items: r.snapshot()}, localErr(err)
	}
	if len(pending) == 0 {
		return MergeResult{Items: r.snapshot()}, nil
	}

	remote, err := r.server()
	if err != nil {
		return MergeResult{Items: r.snapshot()}, err
	}

	result := MergeResult{}
	for i, item := range pending {
		_, err := remote.AddItem(ctx, item.ProductID, item.UnitType, item.Quantity)
		if err == nil {
			result.Merged++
			continue
		}
		if errors.Is(err, ErrItemRejected) {
			log.Printf("[Cart] Dropping guest item %s/%s: %v", item.ProductID, item.UnitType, err)
			result.Skipped++
			continue
		}

		if saveErr := r.local.Save(ctx, pending[i:]); saveErr != nil {
			log.Printf("[Cart] Failed to keep unmerged items: %v", saveErr)
		}
		result.Remaining = len(pending) - i
		result.Items = r.snapshot()
		return result, &MergeError{
			Merged:    result.Merged,
			Skipped:   result.Skipped,
			Remaining: result.Remaining,
			Err:       remoteErr(err),
		}
	}

	if err := r.local.Clear(ctx); err != nil {
		result.Items = r.snapshot()
		return result, localErr(err)
	}

	items, err := remote.GetCart(ctx)
	if err != nil {
		result.Items = r.snapshot()
		return result, remoteErr(err)
	}
	result.Items = r.replace(items)
	return result, nil
}

// Items returns a copy of the current view
func (r *Reconciler) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Total is the sum of price times quantity over the view
func (r *Reconciler) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, item := range r.items {
		total += item.Price * item.Quantity
	}
	return total
}

// ItemCount is the sum of quantities over the view
func (r *Reconciler) ItemCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, item := range r.items {
		count += item.Quantity
	}
	return count
}

func (r *Reconciler) server() (RemoteCart, error) {
	if r.remote == nil {
		return nil, remoteErr(errNoRemote)
	}
	return r.remote, nil
}

func (r *Reconciler) saveLocal(ctx context.Context, next []Item) ([]Item, error) {
	if err := r.local.Save(ctx, next); err != nil {
		return r.snapshot(), localErr(err)
	}
	return r.replace(next), nil
}

func (r *Reconciler) replace(items []Item) []Item {
	r.items = append([]Item{}, items...)
	return r.snapshot()
}

func (r *Reconciler) snapshot() []Item {
	return append([]Item{}, r.items...)
}

// mergeItem returns items with item added under its (product, unit) key
func mergeItem(items []Item, item Item) []Item {
	next := append([]Item{}, items...)
	for i := range next {
		if next[i].sameKey(item.ProductID, item.UnitType) {
			next[i].Quantity += item.Quantity
			next[i].Price = item.Price
			next[i].TotalPrice = next[i].Quantity * next[i].Price
			if item.Name != "" {
				next[i].Name = item.Name
			}
			return next
		}
	}
	item.TotalPrice = item.Quantity * item.Price
	return append(next, item)
}
