package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
)

const (
	findAPIKeySQL = `SELECT id::text, key_hash, name, user_id
		FROM api_keys WHERE key_hash = $1 AND active`

	createAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, user_id)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4)
		ON CONFLICT (key_hash) DO UPDATE SET
			name = EXCLUDED.name,
			user_id = EXCLUDED.user_id,
			active = TRUE`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	s *Store
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
// Returns an error wrapping pgx.ErrNoRows when no matching key exists.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var info auth.APIKeyInfo
	err := r.s.q(ctx).QueryRow(ctx, findAPIKeySQL, hash).
		Scan(&info.ID, &info.KeyHash, &info.Name, &info.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("api key not found: %w", err)
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &info, nil
}

// Create stores an API key. Re-registering a hash reactivates it.
func (r *APIKeyRepository) Create(ctx context.Context, info auth.APIKeyInfo) error {
	_, err := r.s.q(ctx).Exec(ctx, createAPIKeySQL, info.ID, info.KeyHash, info.Name, info.UserID)
	if err != nil {
		return fmt.Errorf("creating api key %q: %w", info.Name, err)
	}
	return nil
}
