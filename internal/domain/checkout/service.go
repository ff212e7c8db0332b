package checkout

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/domain/order"
)

// ErrEmptyCart is returned when checkout is attempted without cart lines.
var ErrEmptyCart = errors.New("your cart is empty")

// Transactor runs fn as one atomic unit.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service turns a user's cart into an order.
type Service struct {
	tx     Transactor
	carts  cart.Repository
	items  catalog.Repository
	orders order.Repository

	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

// NewService creates a checkout Service with the required domain
// dependencies and telemetry providers.
func NewService(
	tx Transactor,
	carts cart.Repository,
	items catalog.Repository,
	orders order.Repository,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	outcomes, err := mp.Meter("smartfit-shop/checkout").Int64Counter("shop.checkout.outcomes",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create outcomes counter")
	}
	return &Service{
		tx:       tx,
		carts:    carts,
		items:    items,
		orders:   orders,
		tracer:   tp.Tracer("smartfit-shop/checkout"),
		outcomes: outcomes,
	}, nil
}

// Checkout validates the user's cart against live stock and converts it
// into a pending order. Stock decrements, order creation and clearing the
// cart happen in one transaction; on any error nothing is persisted.
func (s *Service) Checkout(ctx context.Context, userID string, shipping order.Shipping) (*order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	var placed *order.Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.checkout(ctx, userID, shipping)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "placed")))
	span.SetAttributes(
		attribute.String("order.id", placed.ID.String()),
		attribute.Int("order.lines", len(placed.Lines)),
	)
	zctx.From(ctx).Info("Order placed",
		zap.String("user_id", userID),
		zap.Stringer("order_id", placed.ID),
		zap.Stringer("total", placed.Total),
		zap.Int("lines", len(placed.Lines)),
	)
	return placed, nil
}

func (s *Service) checkout(ctx context.Context, userID string, shipping order.Shipping) (*order.Order, error) {
	// The cart row lock serializes checkouts and line edits of one user, so
	// the lines read below are exactly the lines cleared at the end.
	c, err := s.carts.Lock(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, errors.Wrap(err, "lock cart")
	}
	lines, err := s.carts.Lines(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	shipping, err = NormalizeShipping(shipping)
	if err != nil {
		return nil, err
	}

	// Lock in id order so concurrent checkouts over overlapping items
	// acquire row locks in the same sequence.
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.Item.ID
	}
	slices.Sort(ids)

	locked, err := s.items.LockByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock items")
	}
	live := make(map[int64]catalog.Item, len(locked))
	for _, it := range locked {
		live[it.ID] = it
	}

	for _, l := range lines {
		it, ok := live[l.Item.ID]
		if !ok {
			return nil, errors.Wrapf(catalog.ErrNotFound, "item %d", l.Item.ID)
		}
		if it.Stock < l.Quantity {
			return nil, &catalog.InsufficientStockError{ItemID: it.ID, ItemName: it.Name, Available: it.Stock}
		}
	}

	o := &order.Order{
		ID:       uuid.New(),
		UserID:   userID,
		Shipping: shipping,
		Status:   order.StatusPending,
		Lines:    make([]order.Line, len(lines)),
	}
	total := decimal.Zero
	for i, l := range lines {
		it := live[l.Item.ID]
		o.Lines[i] = order.Line{
			ItemID:   it.ID,
			ItemName: it.Name,
			Quantity: l.Quantity,
			Price:    it.EffectivePrice(),
		}
		total = total.Add(o.Lines[i].Total())
	}
	o.Total = total

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	for _, l := range lines {
		if err := s.items.DecrementStock(ctx, l.Item.ID, l.Quantity); err != nil {
			return nil, errors.Wrapf(err, "decrement stock of item %d", l.Item.ID)
		}
	}
	if err := s.carts.Clear(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return o, nil
}

func outcome(err error) string {
	var (
		stockErr *catalog.InsufficientStockError
		valErr   *ValidationError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &valErr):
		return "invalid_shipping"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	default:
		return "error"
	}
}
