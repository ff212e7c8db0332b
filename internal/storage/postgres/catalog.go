package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/smartfit-shop/internal/domain/catalog"
)

const (
	itemColumns = `i.id, i.name, i.description, i.category, i.price, i.discount_price,
		i.stock, i.featured, i.active, i.created_at, i.updated_at`

	listItemsSQL = `SELECT ` + itemColumns + `
		FROM items i
		WHERE i.active
			AND ($1::text = '' OR i.category = $1::text)
			AND ($2::text = '' OR i.name ILIKE '%' || $2::text || '%')
			AND (NOT $3::bool OR i.featured)
		ORDER BY i.created_at DESC, i.id DESC`

	getItemSQL = `SELECT ` + itemColumns + ` FROM items i WHERE i.id = $1 AND i.active`

	lockItemsSQL = `SELECT ` + itemColumns + `
		FROM items i WHERE i.id = ANY($1) ORDER BY i.id FOR UPDATE`

	decrementStockSQL = `UPDATE items SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2`

	upsertItemSQL = `INSERT INTO items (name, description, category, price, discount_price, stock, featured, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			discount_price = EXCLUDED.discount_price,
			stock = EXCLUDED.stock,
			featured = EXCLUDED.featured,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`
)

var _ catalog.Repository = (*ItemRepository)(nil)

// ItemRepository implements catalog.Repository backed by PostgreSQL.
type ItemRepository struct {
	s *Store
}

// List returns active items matching the filter, newest first.
func (r *ItemRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	rows, err := r.s.q(ctx).Query(ctx, listItemsSQL, string(f.Category), escapeLike(f.Search), f.FeaturedOnly)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetByID returns an active item or catalog.ErrNotFound.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*catalog.Item, error) {
	rows, err := r.s.q(ctx).Query(ctx, getItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}
	return &it, nil
}

// LockByIDs takes row locks on the items in id order and returns them.
// Inactive items are included so callers can tell them apart from missing ones.
func (r *ItemRepository) LockByIDs(ctx context.Context, ids []int64) ([]catalog.Item, error) {
	rows, err := r.s.q(ctx).Query(ctx, lockItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// DecrementStock subtracts qty from the item's stock. The update is refused
// when it would take stock below zero.
func (r *ItemRepository) DecrementStock(ctx context.Context, id int64, qty int) error {
	tag, err := r.s.q(ctx).Exec(ctx, decrementStockSQL, id, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock of item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("stock of item %d would become negative", id)
	}
	return nil
}

// Upsert inserts or updates items keyed by name in a single batch. IDs and
// timestamps are written back into the slice.
func (r *ItemRepository) Upsert(ctx context.Context, items []catalog.Item) error {
	b := &pgx.Batch{}
	for i := range items {
		it := &items[i]
		if err := it.Validate(); err != nil {
			return err
		}
		b.Queue(upsertItemSQL,
			it.Name, it.Description, string(it.Category), it.Price, it.DiscountPrice,
			it.Stock, it.Featured, it.Active,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
		})
	}

	if err := r.s.q(ctx).SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upserting items: %w", err)
	}
	return nil
}

// itemRow receives the item columns of a result row.
type itemRow struct {
	item     catalog.Item
	category string
	discount decimal.NullDecimal
}

func (ir *itemRow) dest() []any {
	return []any{
		&ir.item.ID, &ir.item.Name, &ir.item.Description, &ir.category,
		&ir.item.Price, &ir.discount, &ir.item.Stock, &ir.item.Featured,
		&ir.item.Active, &ir.item.CreatedAt, &ir.item.UpdatedAt,
	}
}

func (ir *itemRow) result() catalog.Item {
	it := ir.item
	it.Category = catalog.Category(strings.TrimSpace(ir.category))
	if ir.discount.Valid {
		d := ir.discount.Decimal
		it.DiscountPrice = &d
	}
	return it
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var ir itemRow
	if err := row.Scan(ir.dest()...); err != nil {
		return catalog.Item{}, err
	}
	return ir.result(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
