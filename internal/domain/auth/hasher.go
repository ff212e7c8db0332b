package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hasher derives the stored form of API keys.
type Hasher struct {
	pepper []byte
}

// NewHasher creates a Hasher keyed with the given HMAC pepper.
func NewHasher(pepper []byte) *Hasher {
	return &Hasher{pepper: pepper}
}

// Hash returns the hex-encoded HMAC-SHA256 of key.
func (h *Hasher) Hash(key string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator resolves raw API keys to user ids.
type Authenticator struct {
	keys   Repository
	hasher *Hasher
}

// NewAuthenticator creates an Authenticator backed by the key repository.
func NewAuthenticator(keys Repository, hasher *Hasher) *Authenticator {
	return &Authenticator{keys: keys, hasher: hasher}
}

// Authenticate hashes the key, looks it up and compares the stored hash in
// constant time. Any failure is reported as ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrUnauthorized
	}
	mac := hmac.New(sha256.New, a.hasher.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return "", ErrUnauthorized
	}

	// The lookup already matched, but a stale or wrong row must not pass.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return "", ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return "", ErrUnauthorized
	}
	return info.UserID, nil
}
