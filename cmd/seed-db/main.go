package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/catalogfeed"
	"github.com/xenking/smartfit-shop/internal/domain/auth"
	"github.com/xenking/smartfit-shop/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
		userID       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.StringVar(&userID, "user-id", "demo", "user that owns the seeded API key")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or SHOP_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile, apiKey, apiKeyPepper, userID); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile, apiKey, pepper, userID string) error {
	items, err := catalogfeed.ReadArrayFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL, 2)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool, 0)
	return store.InTx(ctx, func(ctx context.Context) error {
		if err := store.Items().Upsert(ctx, items); err != nil {
			return errors.Wrap(err, "upsert items")
		}
		for _, it := range items {
			lg.Info("Upserted item", zap.Int64("id", it.ID), zap.String("name", it.Name))
		}

		hash := auth.NewHasher([]byte(pepper)).Hash(apiKey)
		if err := store.APIKeys().Create(ctx, auth.APIKeyInfo{
			KeyHash: hash,
			Name:    "Seeded key for " + userID,
			UserID:  userID,
		}); err != nil {
			return errors.Wrap(err, "upsert api key")
		}
		lg.Info("Upserted API key", zap.String("user_id", userID))
		return nil
	})
}
