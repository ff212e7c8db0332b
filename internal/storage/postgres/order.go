package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/smartfit-shop/internal/domain/order"
)

const (
	orderColumns = `id, user_id, full_name, email, phone, address, city, postal_code,
		country, notes, total_amount, status, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (id, user_id, full_name, email, phone, address, city,
			postal_code, country, notes, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	createOrderLineSQL = `INSERT INTO order_lines (order_id, item_id, item_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

	listOrderLinesSQL = `SELECT order_id, id, item_id, item_name, quantity, price
		FROM order_lines WHERE order_id = ANY($1::uuid[]) ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	s *Store
}

// Create persists the order header and its lines in one batch.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	sh := o.Shipping
	b := &pgx.Batch{}
	b.Queue(createOrderSQL,
		o.ID, o.UserID, sh.FullName, sh.Email, sh.Phone, sh.Address, sh.City,
		sh.PostalCode, sh.Country, sh.Notes, o.Total, string(o.Status),
	).QueryRow(func(row pgx.Row) error {
		return row.Scan(&o.CreatedAt, &o.UpdatedAt)
	})
	for i := range o.Lines {
		l := &o.Lines[i]
		b.Queue(createOrderLineSQL, o.ID, l.ItemID, l.ItemName, l.Quantity, l.Price).
			QueryRow(func(row pgx.Row) error {
				return row.Scan(&l.ID)
			})
	}

	if err := r.s.q(ctx).SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("creating order %s: %w", o.ID, err)
	}
	return nil
}

// ListByUser returns the user's orders with lines, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.s.q(ctx).Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetForUser returns one of the user's orders or order.ErrNotFound.
func (r *OrderRepository) GetForUser(ctx context.Context, userID string, id uuid.UUID) (*order.Order, error) {
	rows, err := r.s.q(ctx).Query(ctx, getOrderSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %s: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %s: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		index[o.ID] = i
		orders[i].Lines = make([]order.Line, 0)
	}

	rows, err := r.s.q(ctx).Query(ctx, listOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			l       order.Line
		)
		if err := rows.Scan(&orderID, &l.ID, &l.ItemID, &l.ItemName, &l.Quantity, &l.Price); err != nil {
			return fmt.Errorf("scanning order line: %w", err)
		}
		i := index[orderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Shipping.FullName, &o.Shipping.Email, &o.Shipping.Phone,
		&o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.Shipping.Notes, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(strings.TrimSpace(status))
	return o, err
}
