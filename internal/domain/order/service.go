package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Service exposes read-only order queries scoped to the requesting user.
type Service struct {
	orders Repository
	tracer trace.Tracer
}

// NewService creates an order query Service.
func NewService(orders Repository, tp trace.TracerProvider) *Service {
	return &Service{
		orders: orders,
		tracer: tp.Tracer("smartfit-shop/order"),
	}
}

// List returns the user's own orders, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Get returns one of the user's orders. Orders of other users are reported
// as ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Get",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("order.id", id.String()),
		),
	)
	defer span.End()

	o, err := s.orders.GetForUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}
