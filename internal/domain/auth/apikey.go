package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when a request carries no valid API key.
var ErrUnauthorized = errors.New("unauthorized")

// APIKeyInfo holds the identity bound to a stored API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Create(ctx context.Context, info APIKeyInfo) error
}

type userKey struct{}

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user id, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
