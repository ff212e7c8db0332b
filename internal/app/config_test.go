package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
)

func validConfig() Config {
	return Config{
		Addr:        "0.0.0.0:8080",
		DatabaseURL: "postgres://localhost/shop",
		Storage:     StorageConfig{Driver: DriverPostgres, MaxConns: 10, TxTimeout: 5 * time.Second},
		RateLimit:   RateLimitConfig{Max: 100, Window: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{name: "MemoryWithoutDatabase", mutate: func(c *Config) {
			c.Storage.Driver = DriverMemory
			c.DatabaseURL = ""
		}},
		{name: "MissingDatabaseURL", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL is required"},
		{name: "UnknownDriver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: `unknown storage driver "sqlite"`},
		{name: "NoConns", mutate: func(c *Config) { c.Storage.MaxConns = 0 }, wantErr: "max conns"},
		{name: "NoRateWindow", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: "rate limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/shop")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: "0.0.0.0:8080"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/shop", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/shop"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/shop", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Kettlebell", "category": "EQ", "price": "30.00", "stock": 2},
		{"name": "Energy Bar", "category": "FD", "price": "2.50", "stock": 40, "is_featured": true}
	]`), 0o600))

	hasher := auth.NewHasher([]byte("pepper"))
	be, err := openMemory(ctx, zap.NewNop(), DevConfig{CatalogFile: path, APIKey: "dev-key", UserID: "dev"}, hasher)
	require.NoError(t, err)
	defer be.close()

	items, err := be.items.List(ctx, catalog.Filter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	user, err := auth.NewAuthenticator(be.apikeys, hasher).Authenticate(ctx, "dev-key")
	require.NoError(t, err)
	assert.Equal(t, "dev", user)
	assert.NoError(t, be.pinger.Ping(ctx))

	_, err = openMemory(ctx, zap.NewNop(), DevConfig{CatalogFile: filepath.Join(t.TempDir(), "missing.json")}, hasher)
	assert.Error(t, err)
}
