// Package repository persists the storefront's only durable client state:
// the raw auth token, stored under a single fixed key.
//
// Three backends are provided. The file backend suits a storefront running
// on the user's machine; Redis and PostgreSQL let a hosted storefront keep
// its session across restarts. All of them store the token verbatim.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Load when no token is stored.
var ErrNotFound = errors.New("not found")

// DefaultKey is the key the token is stored under.
const DefaultKey = "token"

// TokenRepository loads, saves and clears the persisted token.
type TokenRepository interface {
	// Load returns the stored token or ErrNotFound.
	Load(ctx context.Context) (string, error)
	// Save replaces the stored token.
	Save(ctx context.Context, token string) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// MemoryTokenRepository keeps the token in process memory. Nothing survives
// a restart; it backs tests and the "memory" store setting.
type MemoryTokenRepository struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemoryTokenRepository returns an empty in-memory repository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{}
}

func (r *MemoryTokenRepository) Load(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return "", ErrNotFound
	}
	return r.token, nil
}

func (r *MemoryTokenRepository) Save(_ context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("save token: empty token")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token, r.set = token, true
	return nil
}

func (r *MemoryTokenRepository) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token, r.set = "", false
	return nil
}
