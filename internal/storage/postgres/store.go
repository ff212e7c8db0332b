// Package postgres implements the domain repositories on PostgreSQL.
//
// Transactions travel in the context: Store.InTx begins a transaction and
// every repository call made with the derived context runs inside it.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/checkout"
)

var (
	_ cart.Transactor     = (*Store)(nil)
	_ checkout.Transactor = (*Store)(nil)
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txKey struct{}

// Store owns the pool and hands out repositories sharing it.
type Store struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

// NewStore wraps pool. A positive txTimeout bounds every transaction.
func NewStore(pool *pgxpool.Pool, txTimeout time.Duration) *Store {
	return &Store{pool: pool, txTimeout: txTimeout}
}

// InTx runs fn in a READ COMMITTED transaction, committing when fn returns
// nil. Calls made with a context that already carries a transaction join it.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// Items returns the catalog repository.
func (s *Store) Items() *ItemRepository { return &ItemRepository{s: s} }

// Carts returns the cart repository.
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// APIKeys returns the API key repository.
func (s *Store) APIKeys() *APIKeyRepository { return &APIKeyRepository{s: s} }
