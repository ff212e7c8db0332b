package checkout_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/domain/checkout"
	"github.com/xenking/smartfit-shop/internal/domain/order"
	"github.com/xenking/smartfit-shop/internal/storage/memory"
)

// --- Failing decorators ---

var errInjected = errors.New("injected failure")

type failingItems struct {
	catalog.Repository
	failOnDecrement int64
}

func (f *failingItems) DecrementStock(ctx context.Context, id int64, qty int) error {
	if id == f.failOnDecrement {
		return errInjected
	}
	return f.Repository.DecrementStock(ctx, id, qty)
}

type failingCarts struct {
	cart.Repository
}

func (f *failingCarts) Clear(context.Context, int64) error {
	return errInjected
}

// recordingCarts logs the cart repository calls made by a checkout.
type recordingCarts struct {
	cart.Repository
	calls []string
}

func (r *recordingCarts) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	r.calls = append(r.calls, "Get")
	return r.Repository.Get(ctx, userID)
}

func (r *recordingCarts) Lock(ctx context.Context, userID string) (*cart.Cart, error) {
	r.calls = append(r.calls, "Lock")
	return r.Repository.Lock(ctx, userID)
}

func (r *recordingCarts) Lines(ctx context.Context, cartID int64) ([]cart.Line, error) {
	r.calls = append(r.calls, "Lines")
	return r.Repository.Lines(ctx, cartID)
}

func (r *recordingCarts) Clear(ctx context.Context, cartID int64) error {
	r.calls = append(r.calls, "Clear")
	return r.Repository.Clear(ctx, cartID)
}

type failingOrders struct {
	order.Repository
}

func (f *failingOrders) Create(context.Context, *order.Order) error {
	return errInjected
}

// --- Helpers ---

type fixture struct {
	store  *memory.Store
	carts  *cart.Service
	reader *sdkmetric.ManualReader
	a, b   catalog.Item
	c      catalog.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	items := []catalog.Item{
		{Name: "Item A", Category: catalog.CategoryOther, Price: decimal.RequireFromString("10.00"), Stock: 5, Active: true},
		{Name: "Item B", Category: catalog.CategoryOther, Price: decimal.RequireFromString("25.00"), Stock: 3, Active: true},
		{Name: "Item C", Category: catalog.CategoryOther, Price: decimal.RequireFromString("7.00"), Stock: 1, Active: true},
	}
	require.NoError(t, s.Items().Upsert(context.Background(), items))
	return &fixture{
		store:  s,
		carts:  cart.NewService(s, s.Carts(), s.Items()),
		reader: sdkmetric.NewManualReader(),
		a:      items[0],
		b:      items[1],
		c:      items[2],
	}
}

func (f *fixture) service(t *testing.T, items catalog.Repository, carts cart.Repository, orders order.Repository) *checkout.Service {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(f.reader))
	svc, err := checkout.NewService(f.store, carts, items, orders, noop.NewTracerProvider(), mp)
	require.NoError(t, err)
	return svc
}

func (f *fixture) defaultService(t *testing.T) *checkout.Service {
	return f.service(t, f.store.Items(), f.store.Carts(), f.store.Orders())
}

func (f *fixture) add(t *testing.T, userID string, it catalog.Item, qty int) {
	t.Helper()
	_, _, err := f.carts.AddItem(context.Background(), userID, it.ID, qty)
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, it catalog.Item) int {
	t.Helper()
	got, err := f.store.Items().GetByID(context.Background(), it.ID)
	require.NoError(t, err)
	return got.Stock
}

func (f *fixture) cartLines(t *testing.T, userID string) int {
	t.Helper()
	view, err := f.carts.Get(context.Background(), userID)
	require.NoError(t, err)
	return len(view.Lines)
}

// outcomes returns the checkout counter values keyed by outcome.
func (f *fixture) outcomes(t *testing.T) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || m.Name != "shop.checkout.outcomes" {
				continue
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func validShipping() order.Shipping {
	return order.Shipping{
		FullName: "  Jane Runner ",
		Email:    "jane@example.com",
		Phone:    "+1 555 0100",
		Address:  "1 Track Rd",
		City:     "Springfield",
		Country:  "US",
	}
}

// --- Tests ---

func TestCheckout_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "u1", f.a, 2)
	f.add(t, "u1", f.b, 1)

	placed, err := f.defaultService(t).Checkout(ctx, "u1", validShipping())
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, placed.Status)
	assert.True(t, decimal.RequireFromString("45.00").Equal(placed.Total))
	assert.Equal(t, "Jane Runner", placed.Shipping.FullName)
	require.Len(t, placed.Lines, 2)
	assert.Equal(t, "Item A", placed.Lines[0].ItemName)
	assert.True(t, decimal.RequireFromString("10.00").Equal(placed.Lines[0].Price))

	assert.Equal(t, 3, f.stock(t, f.a))
	assert.Equal(t, 2, f.stock(t, f.b))
	assert.Equal(t, 0, f.cartLines(t, "u1"))

	got, err := f.store.Orders().GetForUser(ctx, "u1", placed.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)

	assert.Equal(t, map[string]int64{"placed": 1}, f.outcomes(t))
}

func TestCheckout_UsesDiscountPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	discount := decimal.RequireFromString("8.50")
	a := f.a
	a.DiscountPrice = &discount
	require.NoError(t, f.store.Items().Upsert(ctx, []catalog.Item{a}))
	f.add(t, "u1", f.a, 2)

	placed, err := f.defaultService(t).Checkout(ctx, "u1", validShipping())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("17.00").Equal(placed.Total))
}

func TestCheckout_PriceCapturedAtOrderTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "u1", f.a, 1)

	placed, err := f.defaultService(t).Checkout(ctx, "u1", validShipping())
	require.NoError(t, err)

	a := f.a
	a.Price = decimal.RequireFromString("99.00")
	a.Name = "Item A"
	require.NoError(t, f.store.Items().Upsert(ctx, []catalog.Item{a}))

	got, err := f.store.Orders().GetForUser(ctx, "u1", placed.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(got.Lines[0].Price))
	assert.True(t, decimal.RequireFromString("10.00").Equal(got.Total))
}

func TestCheckout_EmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.defaultService(t)

	_, err := svc.Checkout(ctx, "nobody", validShipping())
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)

	_, err = f.carts.Get(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, "u1", validShipping())
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)

	list, err := f.store.Orders().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, map[string]int64{"empty_cart": 2}, f.outcomes(t))
}

func TestCheckout_InsufficientStockLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "u1", f.a, 2)
	f.add(t, "u1", f.c, 1)

	// The last unit of C is sold elsewhere after it was carted.
	require.NoError(t, f.store.Items().DecrementStock(ctx, f.c.ID, 1))

	_, err := f.defaultService(t).Checkout(ctx, "u1", validShipping())
	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, f.c.ID, stockErr.ItemID)
	assert.Equal(t, "Item C", stockErr.ItemName)
	assert.Equal(t, 0, stockErr.Available)

	assert.Equal(t, 5, f.stock(t, f.a))
	assert.Equal(t, 2, f.cartLines(t, "u1"))
	list, err := f.store.Orders().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, map[string]int64{"insufficient_stock": 1}, f.outcomes(t))
}

func TestCheckout_MergedQuantityCheckedAgainstStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "u1", f.b, 3)
	f.add(t, "u1", f.b, 1)

	_, err := f.defaultService(t).Checkout(ctx, "u1", validShipping())
	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 3, f.stock(t, f.b))
}

func TestCheckout_InvalidShipping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "u1", f.a, 1)

	sh := validShipping()
	sh.Email = "not-an-email"
	sh.City = "   "

	_, err := f.defaultService(t).Checkout(ctx, "u1", sh)
	var valErr *checkout.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "email")
	assert.Contains(t, valErr.Fields, "city")

	assert.Equal(t, 5, f.stock(t, f.a))
	assert.Equal(t, 1, f.cartLines(t, "u1"))
}

func TestCheckout_RollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		build func(f *fixture) (catalog.Repository, cart.Repository, order.Repository)
	}{
		{
			name: "OrderCreate",
			build: func(f *fixture) (catalog.Repository, cart.Repository, order.Repository) {
				return f.store.Items(), f.store.Carts(), &failingOrders{f.store.Orders()}
			},
		},
		{
			name: "SecondDecrement",
			build: func(f *fixture) (catalog.Repository, cart.Repository, order.Repository) {
				return &failingItems{Repository: f.store.Items(), failOnDecrement: f.b.ID}, f.store.Carts(), f.store.Orders()
			},
		},
		{
			name: "ClearCart",
			build: func(f *fixture) (catalog.Repository, cart.Repository, order.Repository) {
				return f.store.Items(), &failingCarts{f.store.Carts()}, f.store.Orders()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add(t, "u1", f.a, 2)
			f.add(t, "u1", f.b, 1)

			items, carts, orders := tt.build(f)
			_, err := f.service(t, items, carts, orders).Checkout(ctx, "u1", validShipping())
			require.ErrorIs(t, err, errInjected)

			assert.Equal(t, 5, f.stock(t, f.a))
			assert.Equal(t, 3, f.stock(t, f.b))
			assert.Equal(t, 2, f.cartLines(t, "u1"))
			list, err := f.store.Orders().ListByUser(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.Equal(t, map[string]int64{"error": 1}, f.outcomes(t))
		})
	}
}

func TestCheckout_LocksCartBeforeReadingLines(t *testing.T) {
	f := newFixture(t)
	f.add(t, "u1", f.a, 1)

	carts := &recordingCarts{Repository: f.store.Carts()}
	_, err := f.service(t, f.store.Items(), carts, f.store.Orders()).Checkout(context.Background(), "u1", validShipping())
	require.NoError(t, err)
	assert.Equal(t, []string{"Lock", "Lines", "Clear"}, carts.calls)
}

func TestCheckout_SameCartPlacesOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "u1", f.a, 2)
	svc := f.defaultService(t)

	const attempts = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed int
		empty  int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(ctx, "u1", validShipping())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, checkout.ErrEmptyCart):
				empty++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, attempts-1, empty)
	assert.Equal(t, 3, f.stock(t, f.a))
	list, err := f.store.Orders().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
