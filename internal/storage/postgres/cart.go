package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
)

const (
	cartColumns = `id, user_id, created_at, updated_at`

	// The no-op update makes RETURNING yield the existing row and locks it
	// for the rest of the transaction.
	getOrCreateCartSQL = `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + cartColumns

	getCartSQL = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`

	lockCartSQL = getCartSQL + ` FOR UPDATE`

	lineSelectSQL = `SELECT l.id, l.cart_id, l.quantity, l.created_at, l.updated_at, ` + itemColumns + `
		FROM cart_lines l JOIN items i ON i.id = l.item_id`

	listLinesSQL = lineSelectSQL + ` WHERE l.cart_id = $1 ORDER BY l.id`

	getLineSQL = lineSelectSQL + ` WHERE l.cart_id = $1 AND l.id = $2`

	findLineByItemSQL = lineSelectSQL + ` WHERE l.cart_id = $1 AND l.item_id = $2`

	addLineSQL = `WITH l AS (
			INSERT INTO cart_lines (cart_id, item_id, quantity) VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		), c AS (
			UPDATE carts SET updated_at = NOW() WHERE id = $1
		)
		SELECT id, created_at, updated_at FROM l`

	setQuantitySQL = `WITH l AS (
			UPDATE cart_lines SET quantity = $2, updated_at = NOW() WHERE id = $1
			RETURNING cart_id
		)
		UPDATE carts SET updated_at = NOW() WHERE id = (SELECT cart_id FROM l)`

	deleteLineSQL = `WITH l AS (
			DELETE FROM cart_lines WHERE cart_id = $1 AND id = $2
			RETURNING cart_id
		)
		UPDATE carts SET updated_at = NOW() WHERE id = (SELECT cart_id FROM l)`

	clearCartSQL = `WITH l AS (
			DELETE FROM cart_lines WHERE cart_id = $1
		)
		UPDATE carts SET updated_at = NOW() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	s *Store
}

// GetOrCreate returns the user's cart, creating an empty one if needed.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.s.q(ctx).Query(ctx, getOrCreateCartSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting or creating cart for %q: %w", userID, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		return nil, fmt.Errorf("getting or creating cart for %q: %w", userID, err)
	}
	return &c, nil
}

// Get returns the user's cart or cart.ErrNotFound.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	return r.oneCart(ctx, getCartSQL, userID)
}

// Lock returns the user's cart with its row locked until the transaction
// ends, or cart.ErrNotFound.
func (r *CartRepository) Lock(ctx context.Context, userID string) (*cart.Cart, error) {
	return r.oneCart(ctx, lockCartSQL, userID)
}

func (r *CartRepository) oneCart(ctx context.Context, sql, userID string) (*cart.Cart, error) {
	rows, err := r.s.q(ctx).Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart for %q: %w", userID, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for %q: %w", userID, err)
	}
	return &c, nil
}

// Lines returns the cart's lines joined with their items, oldest first.
func (r *CartRepository) Lines(ctx context.Context, cartID int64) ([]cart.Line, error) {
	rows, err := r.s.q(ctx).Query(ctx, listLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing lines of cart %d: %w", cartID, err)
	}
	return pgx.CollectRows(rows, scanLine)
}

// GetLine returns one line of the cart or cart.ErrLineNotFound.
func (r *CartRepository) GetLine(ctx context.Context, cartID, lineID int64) (*cart.Line, error) {
	return r.oneLine(ctx, getLineSQL, cartID, lineID)
}

// FindLineByItem returns the line holding itemID or cart.ErrLineNotFound.
func (r *CartRepository) FindLineByItem(ctx context.Context, cartID, itemID int64) (*cart.Line, error) {
	return r.oneLine(ctx, findLineByItemSQL, cartID, itemID)
}

func (r *CartRepository) oneLine(ctx context.Context, sql string, cartID, id int64) (*cart.Line, error) {
	rows, err := r.s.q(ctx).Query(ctx, sql, cartID, id)
	if err != nil {
		return nil, fmt.Errorf("getting line of cart %d: %w", cartID, err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("getting line of cart %d: %w", cartID, err)
	}
	return &l, nil
}

// AddLine inserts a line, setting its ID and timestamps.
func (r *CartRepository) AddLine(ctx context.Context, l *cart.Line) error {
	err := r.s.q(ctx).QueryRow(ctx, addLineSQL, l.CartID, l.Item.ID, l.Quantity).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("adding item %d to cart %d: %w", l.Item.ID, l.CartID, err)
	}
	return nil
}

// SetQuantity overwrites the quantity of a line.
func (r *CartRepository) SetQuantity(ctx context.Context, lineID int64, qty int) error {
	tag, err := r.s.q(ctx).Exec(ctx, setQuantitySQL, lineID, qty)
	if err != nil {
		return fmt.Errorf("setting quantity of line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// DeleteLine removes a line of the cart or returns cart.ErrLineNotFound.
func (r *CartRepository) DeleteLine(ctx context.Context, cartID, lineID int64) error {
	tag, err := r.s.q(ctx).Exec(ctx, deleteLineSQL, cartID, lineID)
	if err != nil {
		return fmt.Errorf("deleting line %d of cart %d: %w", lineID, cartID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Clear removes every line of the cart.
func (r *CartRepository) Clear(ctx context.Context, cartID int64) error {
	if _, err := r.s.q(ctx).Exec(ctx, clearCartSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %d: %w", cartID, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var c cart.Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l  cart.Line
		ir itemRow
	)
	dest := append([]any{&l.ID, &l.CartID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt}, ir.dest()...)
	if err := row.Scan(dest...); err != nil {
		return cart.Line{}, err
	}
	l.Item = ir.result()
	return l, nil
}
