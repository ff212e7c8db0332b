package memory

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
	"github.com/xenking/smartfit-shop/internal/domain/order"
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ auth.Repository  = (*APIKeyRepository)(nil)
)

// OrderRepository implements order.Repository in memory.
type OrderRepository struct {
	s *Store
}

// Create stores a copy of the order, assigning line IDs and timestamps.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.data.orders[o.ID]; ok {
		return errors.Errorf("order %s already exists", o.ID)
	}

	now := r.s.now()
	o.CreatedAt = now
	o.UpdatedAt = now
	for i := range o.Lines {
		r.s.data.nextOrderLineID++
		o.Lines[i].ID = r.s.data.nextOrderLineID
	}

	stored := *o
	stored.Lines = slices.Clone(o.Lines)
	r.s.data.orders[o.ID] = stored
	r.s.data.orderSeq = append(r.s.data.orderSeq, o.ID)
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	defer r.s.acquire(ctx)()

	out := make([]order.Order, 0)
	for i := len(r.s.data.orderSeq) - 1; i >= 0; i-- {
		o := r.s.data.orders[r.s.data.orderSeq[i]]
		if o.UserID != userID {
			continue
		}
		o.Lines = slices.Clone(o.Lines)
		out = append(out, o)
	}
	return out, nil
}

// GetForUser returns one of the user's orders or order.ErrNotFound.
func (r *OrderRepository) GetForUser(ctx context.Context, userID string, id uuid.UUID) (*order.Order, error) {
	defer r.s.acquire(ctx)()

	o, ok := r.s.data.orders[id]
	if !ok || o.UserID != userID {
		return nil, order.ErrNotFound
	}
	o.Lines = slices.Clone(o.Lines)
	return &o, nil
}

// APIKeyRepository implements auth.Repository in memory.
type APIKeyRepository struct {
	s *Store
}

// FindByHash returns the key stored under hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	defer r.s.acquire(ctx)()

	info, ok := r.s.data.apikeys[hash]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return &info, nil
}

// Create stores an API key, replacing any key with the same hash.
func (r *APIKeyRepository) Create(ctx context.Context, info auth.APIKeyInfo) error {
	defer r.s.acquire(ctx)()

	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	r.s.data.apikeys[info.KeyHash] = info
	return nil
}
