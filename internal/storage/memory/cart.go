package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository in memory.
type CartRepository struct {
	s *Store
}

// GetOrCreate returns the user's cart, creating an empty one if needed.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	defer r.s.acquire(ctx)()

	if id, ok := r.s.data.cartByUser[userID]; ok {
		c := r.s.data.carts[id]
		return &c, nil
	}

	now := r.s.now()
	r.s.data.nextCartID++
	c := cart.Cart{
		ID:        r.s.data.nextCartID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.data.carts[c.ID] = c
	r.s.data.cartByUser[userID] = c.ID
	return &c, nil
}

// Get returns the user's cart or cart.ErrNotFound.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	defer r.s.acquire(ctx)()

	id, ok := r.s.data.cartByUser[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	c := r.s.data.carts[id]
	return &c, nil
}

// Lock returns the user's cart or cart.ErrNotFound. Transactions already
// hold the store lock, so no row lock is needed.
func (r *CartRepository) Lock(ctx context.Context, userID string) (*cart.Cart, error) {
	return r.Get(ctx, userID)
}

// Lines returns the cart's lines joined with their items, oldest first.
func (r *CartRepository) Lines(ctx context.Context, cartID int64) ([]cart.Line, error) {
	defer r.s.acquire(ctx)()

	out := make([]cart.Line, 0)
	for _, row := range r.s.data.lines {
		if row.CartID != cartID {
			continue
		}
		l, err := r.join(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	slices.SortFunc(out, func(a, b cart.Line) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// GetLine returns one line of the cart or cart.ErrLineNotFound.
func (r *CartRepository) GetLine(ctx context.Context, cartID, lineID int64) (*cart.Line, error) {
	defer r.s.acquire(ctx)()

	row, ok := r.s.data.lines[lineID]
	if !ok || row.CartID != cartID {
		return nil, cart.ErrLineNotFound
	}
	return r.join(row)
}

// FindLineByItem returns the line holding itemID or cart.ErrLineNotFound.
func (r *CartRepository) FindLineByItem(ctx context.Context, cartID, itemID int64) (*cart.Line, error) {
	defer r.s.acquire(ctx)()

	for _, row := range r.s.data.lines {
		if row.CartID == cartID && row.ItemID == itemID {
			return r.join(row)
		}
	}
	return nil, cart.ErrLineNotFound
}

// AddLine inserts a line. A second line for the same item is rejected.
func (r *CartRepository) AddLine(ctx context.Context, l *cart.Line) error {
	defer r.s.acquire(ctx)()

	for _, row := range r.s.data.lines {
		if row.CartID == l.CartID && row.ItemID == l.Item.ID {
			return errors.Errorf("cart %d already holds item %d", l.CartID, l.Item.ID)
		}
	}

	now := r.s.now()
	r.s.data.nextLineID++
	row := lineRow{
		ID:        r.s.data.nextLineID,
		CartID:    l.CartID,
		ItemID:    l.Item.ID,
		Quantity:  l.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.data.lines[row.ID] = row
	r.touch(l.CartID, now)

	l.ID = row.ID
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

// SetQuantity overwrites the quantity of a line.
func (r *CartRepository) SetQuantity(ctx context.Context, lineID int64, qty int) error {
	defer r.s.acquire(ctx)()

	row, ok := r.s.data.lines[lineID]
	if !ok {
		return cart.ErrLineNotFound
	}
	row.Quantity = qty
	row.UpdatedAt = r.s.now()
	r.s.data.lines[lineID] = row
	r.touch(row.CartID, row.UpdatedAt)
	return nil
}

// DeleteLine removes a line of the cart or returns cart.ErrLineNotFound.
func (r *CartRepository) DeleteLine(ctx context.Context, cartID, lineID int64) error {
	defer r.s.acquire(ctx)()

	row, ok := r.s.data.lines[lineID]
	if !ok || row.CartID != cartID {
		return cart.ErrLineNotFound
	}
	delete(r.s.data.lines, lineID)
	r.touch(cartID, r.s.now())
	return nil
}

// Clear removes every line of the cart.
func (r *CartRepository) Clear(ctx context.Context, cartID int64) error {
	defer r.s.acquire(ctx)()

	for id, row := range r.s.data.lines {
		if row.CartID == cartID {
			delete(r.s.data.lines, id)
		}
	}
	r.touch(cartID, r.s.now())
	return nil
}

func (r *CartRepository) join(row lineRow) (*cart.Line, error) {
	it, ok := r.s.data.items[row.ItemID]
	if !ok {
		return nil, errors.Errorf("cart line %d references missing item %d", row.ID, row.ItemID)
	}
	return &cart.Line{
		ID:        row.ID,
		CartID:    row.CartID,
		Item:      it,
		Quantity:  row.Quantity,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *CartRepository) touch(cartID int64, now time.Time) {
	if c, ok := r.s.data.carts[cartID]; ok {
		c.UpdatedAt = now
		r.s.data.carts[cartID] = c
	}
}
