package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist or belongs to
// another user.
var ErrNotFound = errors.New("order not found")

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "PD"
	StatusProcessing Status = "PR"
	StatusShipped    Status = "SH"
	StatusDelivered  Status = "DL"
	StatusCancelled  Status = "CN"
)

var statusNames = map[Status]string{
	StatusPending:    "Pending",
	StatusProcessing: "Processing",
	StatusShipped:    "Shipped",
	StatusDelivered:  "Delivered",
	StatusCancelled:  "Cancelled",
}

// transitions lists the statuses reachable from each status. Delivered and
// Cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// Display returns the human-readable status name.
func (s Status) Display() string {
	return statusNames[s]
}

// Valid reports whether s is a known status code.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// CanTransitionTo reports whether fulfillment may move an order from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Shipping is the contact and delivery snapshot captured at checkout.
type Shipping struct {
	FullName   string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
	Notes      string
}

// Order is the immutable record of a completed purchase.
type Order struct {
	ID        uuid.UUID
	UserID    string
	Shipping  Shipping
	Total     decimal.Decimal
	Status    Status
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is a purchased item with the price captured at order creation.
type Line struct {
	ID       int64
	ItemID   int64
	ItemName string
	Quantity int
	Price    decimal.Decimal
}

// Total is the captured price times quantity. It never consults the catalog.
func (l *Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and its lines, setting line IDs and
	// timestamps.
	Create(ctx context.Context, o *Order) error
	// ListByUser returns the user's orders with lines, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// GetForUser returns one of the user's orders or ErrNotFound.
	GetForUser(ctx context.Context, userID string, id uuid.UUID) (*Order, error)
}
