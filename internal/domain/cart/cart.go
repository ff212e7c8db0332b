package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/smartfit-shop/internal/domain/catalog"
)

// Sentinel errors for cart operations.
var (
	ErrNotFound        = errors.New("cart not found")
	ErrLineNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Cart is the per-user working selection. A user owns at most one cart.
type Cart struct {
	ID        int64
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is a single (cart, item) pair. Item carries the catalog row as of the
// read, so prices are always current.
type Line struct {
	ID        int64
	CartID    int64
	Item      catalog.Item
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total is quantity times the item's current effective price.
func (l *Line) Total() decimal.Decimal {
	return l.Item.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// View is a cart together with its lines. Totals are derived on every call.
type View struct {
	Cart  Cart
	Lines []Line
}

// Total returns the sum of all line totals.
func (v *View) Total() decimal.Decimal {
	sum := decimal.Zero
	for i := range v.Lines {
		sum = sum.Add(v.Lines[i].Total())
	}
	return sum
}

// ItemCount returns the sum of all line quantities.
func (v *View) ItemCount() int {
	n := 0
	for _, l := range v.Lines {
		n += l.Quantity
	}
	return n
}

// Repository defines persistence operations for carts and their lines.
type Repository interface {
	// GetOrCreate returns the user's cart, creating an empty one if needed.
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	// Get returns the user's cart or ErrNotFound.
	Get(ctx context.Context, userID string) (*Cart, error)
	// Lock returns the user's cart or ErrNotFound and holds a write lock on
	// it until the surrounding transaction ends.
	Lock(ctx context.Context, userID string) (*Cart, error)
	// Lines returns the cart's lines joined with their items, oldest first.
	Lines(ctx context.Context, cartID int64) ([]Line, error)
	// GetLine returns one line of the cart or ErrLineNotFound.
	GetLine(ctx context.Context, cartID, lineID int64) (*Line, error)
	// FindLineByItem returns the line holding itemID or ErrLineNotFound.
	FindLineByItem(ctx context.Context, cartID, itemID int64) (*Line, error)
	// AddLine inserts a line, setting its ID and timestamps.
	AddLine(ctx context.Context, l *Line) error
	// SetQuantity overwrites the quantity of a line.
	SetQuantity(ctx context.Context, lineID int64, qty int) error
	// DeleteLine removes a line of the cart or returns ErrLineNotFound.
	DeleteLine(ctx context.Context, cartID, lineID int64) error
	// Clear removes every line of the cart. The cart itself stays.
	Clear(ctx context.Context, cartID int64) error
}

// Transactor runs fn as one atomic unit. Repositories called with the
// context handed to fn take part in the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
