// Package auth authenticates brokers by API key.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeDrafts grants access to the broker draft lists.
const ScopeDrafts = "drafts"

var (
	// ErrUnauthorized is returned for missing, unknown or revoked keys.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned by repositories when no key matches.
	ErrNotFound = errors.New("api key not found")
)

// Broker is the identity behind an API key.
type Broker struct {
	ID      string
	KeyHash string
	Name    string
	Email   string
	Scopes  []string
}

// Can reports whether the broker holds scope.
func (b *Broker) Can(scope string) bool {
	return slices.Contains(b.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Broker, error)
	Upsert(ctx context.Context, b *Broker) error
}

// HashKey returns the hex HMAC-SHA256 of key under pepper.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator resolves raw API keys to brokers.
type Authenticator struct {
	repo   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator over repo.
func NewAuthenticator(repo Repository, pepper []byte) *Authenticator {
	return &Authenticator{repo: repo, pepper: pepper}
}

// Authenticate looks up key and checks that the broker holds scope.
func (a *Authenticator) Authenticate(ctx context.Context, key, scope string) (*Broker, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := HashKey(a.pepper, key)

	b, err := a.repo.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	// The stored hash must match what we computed.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(b.KeyHash)) != 1 {
		return nil, ErrUnauthorized
	}
	if scope != "" && !b.Can(scope) {
		return nil, ErrUnauthorized
	}
	return b, nil
}

type brokerKey struct{}

// WithBroker stores b in ctx.
func WithBroker(ctx context.Context, b *Broker) context.Context {
	return context.WithValue(ctx, brokerKey{}, b)
}

// BrokerFrom returns the broker stored by WithBroker.
func BrokerFrom(ctx context.Context) (*Broker, bool) {
	b, ok := ctx.Value(brokerKey{}).(*Broker)
	return b, ok && b != nil
}
