package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/domain/catalog"
)

// Service encapsulates cart management. Every mutation runs in its own
// transaction and returns the cart as read inside that transaction.
type Service struct {
	tx    Transactor
	carts Repository
	items catalog.Repository
}

// NewService creates a cart Service with the required domain dependencies.
func NewService(tx Transactor, carts Repository, items catalog.Repository) *Service {
	return &Service{
		tx:    tx,
		carts: carts,
		items: items,
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	var view *View
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "get or create cart")
		}
		view, err = s.view(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// AddItem puts qty units of an item into the user's cart. If the item is
// already there the quantities are summed. The returned flag reports
// whether a new line was created.
func (s *Service) AddItem(ctx context.Context, userID string, itemID int64, qty int) (*View, bool, error) {
	if qty < 1 {
		return nil, false, ErrInvalidQuantity
	}

	var (
		view    *View
		created bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "get or create cart")
		}

		it, err := s.lockItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !it.Active {
			return catalog.ErrNotFound
		}
		if it.Stock < qty {
			return &catalog.InsufficientStockError{ItemID: it.ID, ItemName: it.Name, Available: it.Stock}
		}

		existing, err := s.carts.FindLineByItem(ctx, c.ID, itemID)
		switch {
		case errors.Is(err, ErrLineNotFound):
			created = true
			if err := s.carts.AddLine(ctx, &Line{CartID: c.ID, Item: *it, Quantity: qty}); err != nil {
				return errors.Wrap(err, "add line")
			}
		case err != nil:
			return errors.Wrap(err, "find line")
		default:
			if err := s.carts.SetQuantity(ctx, existing.ID, existing.Quantity+qty); err != nil {
				return errors.Wrap(err, "merge line")
			}
		}

		view, err = s.view(ctx, c)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	zctx.From(ctx).Debug("Item added to cart",
		zap.String("user_id", userID),
		zap.Int64("item_id", itemID),
		zap.Int("quantity", qty),
		zap.Bool("new_line", created),
	)
	return view, created, nil
}

// UpdateQuantity replaces the quantity of one of the user's cart lines.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, lineID int64, qty int) (*View, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	var view *View
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, line, err := s.userLine(ctx, userID, lineID)
		if err != nil {
			return err
		}

		it, err := s.lockItem(ctx, line.Item.ID)
		if err != nil {
			return err
		}
		if it.Stock < qty {
			return &catalog.InsufficientStockError{ItemID: it.ID, ItemName: it.Name, Available: it.Stock}
		}

		if err := s.carts.SetQuantity(ctx, line.ID, qty); err != nil {
			return errors.Wrap(err, "set quantity")
		}

		view, err = s.view(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// RemoveLine deletes one of the user's cart lines without any stock check.
func (s *Service) RemoveLine(ctx context.Context, userID string, lineID int64) (*View, error) {
	var view *View
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.Lock(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrLineNotFound
			}
			return errors.Wrap(err, "lock cart")
		}
		if err := s.carts.DeleteLine(ctx, c.ID, lineID); err != nil {
			return err
		}
		view, err = s.view(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// userLine resolves a line id within the user's cart. A missing cart is
// reported the same way as a missing line.
func (s *Service) userLine(ctx context.Context, userID string, lineID int64) (*Cart, *Line, error) {
	c, err := s.carts.Lock(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrLineNotFound
		}
		return nil, nil, errors.Wrap(err, "lock cart")
	}
	line, err := s.carts.GetLine(ctx, c.ID, lineID)
	if err != nil {
		return nil, nil, err
	}
	return c, line, nil
}

// lockItem reads one item under a write lock, returning catalog.ErrNotFound
// when it does not exist.
func (s *Service) lockItem(ctx context.Context, id int64) (*catalog.Item, error) {
	items, err := s.items.LockByIDs(ctx, []int64{id})
	if err != nil {
		return nil, errors.Wrap(err, "lock item")
	}
	if len(items) == 0 {
		return nil, catalog.ErrNotFound
	}
	return &items[0], nil
}

func (s *Service) view(ctx context.Context, c *Cart) (*View, error) {
	lines, err := s.carts.Lines(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list lines")
	}
	return &View{Cart: *c, Lines: lines}, nil
}
