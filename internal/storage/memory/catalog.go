package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/smartfit-shop/internal/domain/catalog"
)

var _ catalog.Repository = (*ItemRepository)(nil)

// ItemRepository implements catalog.Repository in memory.
type ItemRepository struct {
	s *Store
}

// List returns active items matching the filter, newest first.
func (r *ItemRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	defer r.s.acquire(ctx)()

	search := strings.ToLower(f.Search)
	out := make([]catalog.Item, 0, len(r.s.data.items))
	for _, it := range r.s.data.items {
		switch {
		case !it.Active:
			continue
		case f.Category != "" && it.Category != f.Category:
			continue
		case f.FeaturedOnly && !it.Featured:
			continue
		case search != "" && !strings.Contains(strings.ToLower(it.Name), search):
			continue
		}
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b catalog.Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// GetByID returns an active item or catalog.ErrNotFound.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*catalog.Item, error) {
	defer r.s.acquire(ctx)()

	it, ok := r.s.data.items[id]
	if !ok || !it.Active {
		return nil, catalog.ErrNotFound
	}
	return &it, nil
}

// LockByIDs returns the requested items ordered by id. The store lock held
// by the surrounding transaction already excludes other writers.
func (r *ItemRepository) LockByIDs(ctx context.Context, ids []int64) ([]catalog.Item, error) {
	defer r.s.acquire(ctx)()

	out := make([]catalog.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := r.s.data.items[id]; ok {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b catalog.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// DecrementStock subtracts qty from the item's stock. Stock never goes
// below zero.
func (r *ItemRepository) DecrementStock(ctx context.Context, id int64, qty int) error {
	defer r.s.acquire(ctx)()

	it, ok := r.s.data.items[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if it.Stock < qty {
		return errors.Errorf("stock of item %d would become negative", id)
	}
	it.Stock -= qty
	it.UpdatedAt = r.s.now()
	r.s.data.items[id] = it
	return nil
}

// Upsert inserts or updates items keyed by name. IDs of inserted items are
// written back into the slice. Nothing is written unless every item is valid.
func (r *ItemRepository) Upsert(ctx context.Context, items []catalog.Item) error {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return err
		}
	}

	defer r.s.acquire(ctx)()

	byName := make(map[string]int64, len(r.s.data.items))
	for id, it := range r.s.data.items {
		byName[it.Name] = id
	}

	now := r.s.now()
	for i := range items {
		it := items[i]
		if id, ok := byName[it.Name]; ok {
			it.ID = id
			it.CreatedAt = r.s.data.items[id].CreatedAt
		} else {
			r.s.data.nextItemID++
			it.ID = r.s.data.nextItemID
			it.CreatedAt = now
			byName[it.Name] = it.ID
		}
		it.UpdatedAt = now
		r.s.data.items[it.ID] = it
		items[i] = it
	}
	return nil
}
