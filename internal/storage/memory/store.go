// Package memory provides an in-process transactional store implementing the
// domain repositories. A transaction holds the store lock for its whole
// duration and restores a snapshot when it fails, which gives serializable
// isolation.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/domain/checkout"
	"github.com/xenking/smartfit-shop/internal/domain/order"
)

var (
	_ cart.Transactor     = (*Store)(nil)
	_ checkout.Transactor = (*Store)(nil)
)

type lineRow struct {
	ID        int64
	CartID    int64
	ItemID    int64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type state struct {
	items      map[int64]catalog.Item
	nextItemID int64

	carts      map[int64]cart.Cart
	cartByUser map[string]int64
	nextCartID int64

	lines      map[int64]lineRow
	nextLineID int64

	orders          map[uuid.UUID]order.Order
	orderSeq        []uuid.UUID
	nextOrderLineID int64

	apikeys map[string]auth.APIKeyInfo
}

func newState() *state {
	return &state{
		items:      make(map[int64]catalog.Item),
		carts:      make(map[int64]cart.Cart),
		cartByUser: make(map[string]int64),
		lines:      make(map[int64]lineRow),
		orders:     make(map[uuid.UUID]order.Order),
		apikeys:    make(map[string]auth.APIKeyInfo),
	}
}

// clone copies every table. Items and orders hold pointers or slices that
// are never mutated in place, so a shallow copy of the values is enough.
func (st *state) clone() *state {
	return &state{
		items:           maps.Clone(st.items),
		nextItemID:      st.nextItemID,
		carts:           maps.Clone(st.carts),
		cartByUser:      maps.Clone(st.cartByUser),
		nextCartID:      st.nextCartID,
		lines:           maps.Clone(st.lines),
		nextLineID:      st.nextLineID,
		orders:          maps.Clone(st.orders),
		orderSeq:        append([]uuid.UUID(nil), st.orderSeq...),
		nextOrderLineID: st.nextOrderLineID,
		apikeys:         maps.Clone(st.apikeys),
	}
}

type txKey struct{}

// Store is the in-memory backing for all repositories.
type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		data: newState(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// InTx runs fn under the store lock. If fn returns an error or panics, every
// change made through ctx is discarded. Nested calls join the outer
// transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// Ping always succeeds; it exists so the store can back readiness checks.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// acquire locks the store unless ctx already belongs to one of its
// transactions. The returned func releases what was taken.
func (s *Store) acquire(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Items returns the catalog repository.
func (s *Store) Items() *ItemRepository { return &ItemRepository{s: s} }

// Carts returns the cart repository.
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// APIKeys returns the API key repository.
func (s *Store) APIKeys() *APIKeyRepository { return &APIKeyRepository{s: s} }
