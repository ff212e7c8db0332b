package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested item does not exist or is inactive.
var ErrNotFound = errors.New("item not found")

// InsufficientStockError indicates that a requested quantity exceeds the
// live stock of an item.
type InsufficientStockError struct {
	ItemID    int64
	ItemName  string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Only %d available.", e.ItemName, e.Available)
}

// Category is the two-letter catalog category code.
type Category string

const (
	CategorySupplements Category = "SP"
	CategoryEquipment   Category = "EQ"
	CategoryClothing    Category = "CL"
	CategoryFood        Category = "FD"
	CategoryBeverages   Category = "BV"
	CategoryAccessories Category = "AC"
	CategoryOther       Category = "OT"
)

var categoryNames = map[Category]string{
	CategorySupplements: "Supplements",
	CategoryEquipment:   "Equipment",
	CategoryClothing:    "Clothing",
	CategoryFood:        "Food",
	CategoryBeverages:   "Beverages",
	CategoryAccessories: "Accessories",
	CategoryOther:       "Other",
}

// Valid reports whether c is a known category code.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Display returns the human-readable category name.
func (c Category) Display() string {
	return categoryNames[c]
}

// Item is a sellable catalog entry.
type Item struct {
	ID            int64
	Name          string
	Description   string
	Category      Category
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         int
	Featured      bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var hundred = decimal.NewFromInt(100)

// EffectivePrice is the discount price when one is set, the base price
// otherwise.
func (it *Item) EffectivePrice() decimal.Decimal {
	if it.DiscountPrice != nil {
		return *it.DiscountPrice
	}
	return it.Price
}

// DiscountPercentage returns the discount relative to the base price,
// rounded to two places. Items without a discount report zero.
func (it *Item) DiscountPercentage() decimal.Decimal {
	if it.DiscountPrice == nil || !it.Price.IsPositive() {
		return decimal.Zero
	}
	return it.Price.Sub(*it.DiscountPrice).Div(it.Price).Mul(hundred).Round(2)
}

// Validate checks the catalog invariants every write must uphold.
func (it *Item) Validate() error {
	switch {
	case strings.TrimSpace(it.Name) == "":
		return errors.New("item name is required")
	case !it.Category.Valid():
		return errors.Errorf("unknown category %q", it.Category)
	case it.Price.IsNegative():
		return errors.Errorf("item %q: price must not be negative", it.Name)
	case it.Stock < 0:
		return errors.Errorf("item %q: stock must not be negative", it.Name)
	}
	if d := it.DiscountPrice; d != nil {
		if d.IsNegative() {
			return errors.Errorf("item %q: discount price must not be negative", it.Name)
		}
		if d.GreaterThan(it.Price) {
			return errors.Errorf("item %q: discount price %s exceeds price %s", it.Name, d, it.Price)
		}
	}
	return nil
}

// Filter narrows a catalog listing. Zero values disable a criterion.
type Filter struct {
	Category     Category
	Search       string
	FeaturedOnly bool
}

// Repository defines persistence operations for catalog items.
type Repository interface {
	// List returns active items matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]Item, error)
	// GetByID returns an active item or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*Item, error)
	// LockByIDs returns the items with the given ids and holds a write lock
	// on them until the surrounding transaction ends. Inactive items are
	// included. Missing ids are absent from the result.
	LockByIDs(ctx context.Context, ids []int64) ([]Item, error)
	// DecrementStock subtracts qty from the item's stock.
	DecrementStock(ctx context.Context, id int64, qty int) error
	// Upsert inserts or updates items keyed by name.
	Upsert(ctx context.Context, items []Item) error
}
