package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/catalogfeed"
	"github.com/xenking/smartfit-shop/internal/domain/auth"
	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/domain/checkout"
	"github.com/xenking/smartfit-shop/internal/domain/order"
	"github.com/xenking/smartfit-shop/internal/storage/memory"
	"github.com/xenking/smartfit-shop/internal/storage/postgres"
	"github.com/xenking/smartfit-shop/pkg/health"
)

// backend is the set of repositories the services run on.
type backend struct {
	tx      checkout.Transactor
	items   catalog.Repository
	carts   cart.Repository
	orders  order.Repository
	apikeys auth.Repository
	pinger  health.Pinger
	close   func()
}

func openBackend(ctx context.Context, lg *zap.Logger, cfg *Config, hasher *auth.Hasher) (*backend, error) {
	switch cfg.Storage.Driver {
	case DriverMemory:
		return openMemory(ctx, lg, cfg.Dev, hasher)
	default:
		return openPostgres(ctx, lg, cfg)
	}
}

func openPostgres(ctx context.Context, lg *zap.Logger, cfg *Config) (*backend, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, int32(cfg.Storage.MaxConns))
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("PostgreSQL ready", zap.Int("max_conns", cfg.Storage.MaxConns))

	store := postgres.NewStore(pool, cfg.Storage.TxTimeout)
	return &backend{
		tx:      store,
		items:   store.Items(),
		carts:   store.Carts(),
		orders:  store.Orders(),
		apikeys: store.APIKeys(),
		pinger:  store,
		close:   pool.Close,
	}, nil
}

// openMemory builds an in-process store, optionally loading a catalog and
// registering one API key.
func openMemory(ctx context.Context, lg *zap.Logger, dev DevConfig, hasher *auth.Hasher) (*backend, error) {
	store := memory.New()

	if dev.CatalogFile != "" {
		items, err := catalogfeed.ReadArrayFile(dev.CatalogFile)
		if err != nil {
			return nil, errors.Wrap(err, "load dev catalog")
		}
		if err := store.Items().Upsert(ctx, items); err != nil {
			return nil, errors.Wrap(err, "seed dev catalog")
		}
		lg.Info("Dev catalog loaded", zap.Int("items", len(items)))
	}
	if dev.APIKey != "" {
		if err := store.APIKeys().Create(ctx, auth.APIKeyInfo{
			KeyHash: hasher.Hash(dev.APIKey),
			Name:    "dev",
			UserID:  dev.UserID,
		}); err != nil {
			return nil, errors.Wrap(err, "register dev api key")
		}
	}
	lg.Warn("Using in-memory storage, data is lost on exit")

	return &backend{
		tx:      store,
		items:   store.Items(),
		carts:   store.Carts(),
		orders:  store.Orders(),
		apikeys: store.APIKeys(),
		pinger:  store,
		close:   func() {},
	}, nil
}
