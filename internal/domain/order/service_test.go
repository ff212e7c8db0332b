package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders []Order
	err    error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, *o)
	return nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *mockOrderRepo) GetForUser(_ context.Context, userID string, id uuid.UUID) (*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.orders {
		if m.orders[i].ID == id && m.orders[i].UserID == userID {
			return &m.orders[i], nil
		}
	}
	return nil, ErrNotFound
}

// --- Helpers ---

func newTestOrder(userID string) Order {
	return Order{
		ID:     uuid.New(),
		UserID: userID,
		Status: StatusPending,
		Total:  decimal.RequireFromString("45.00"),
		Lines: []Line{
			{ID: 1, ItemID: 1, ItemName: "Item A", Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{ID: 2, ItemID: 2, ItemName: "Item B", Quantity: 1, Price: decimal.RequireFromString("25.00")},
		},
	}
}

func newService(repo *mockOrderRepo) *Service {
	return NewService(repo, noop.NewTracerProvider())
}

// --- Tests ---

func TestService_List(t *testing.T) {
	repo := &mockOrderRepo{}
	older, newer, foreign := newTestOrder("u1"), newTestOrder("u1"), newTestOrder("u2")
	repo.orders = []Order{older, foreign, newer}

	got, err := newService(repo).List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestService_Get(t *testing.T) {
	o := newTestOrder("u1")
	repo := &mockOrderRepo{orders: []Order{o}}
	svc := newService(repo)
	ctx := context.Background()

	t.Run("Own", func(t *testing.T) {
		got, err := svc.Get(ctx, "u1", o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
	})

	t.Run("OtherUser", func(t *testing.T) {
		_, err := svc.Get(ctx, "u2", o.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := svc.Get(ctx, "u1", uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_RepositoryError(t *testing.T) {
	repoErr := errors.New("connection reset")
	svc := newService(&mockOrderRepo{err: repoErr})

	_, err := svc.List(context.Background(), "u1")
	require.ErrorIs(t, err, repoErr)

	_, err = svc.Get(context.Background(), "u1", uuid.New())
	require.ErrorIs(t, err, repoErr)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLine_TotalUsesCapturedPrice(t *testing.T) {
	o := newTestOrder("u1")
	sum := decimal.Zero
	for i := range o.Lines {
		sum = sum.Add(o.Lines[i].Total())
	}
	assert.True(t, o.Total.Equal(sum))
}

func TestStatus(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusPending, StatusDelivered, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.Equal(t, "Pending", StatusPending.Display())
	assert.True(t, StatusShipped.Valid())
	assert.False(t, Status("XX").Valid())
}
