// Package session holds the client's authentication state: the current
// access token and an explicit logged-out flag. The flag distinguishes
// "never logged in" from "actively logged out"; when it is set the token is
// always empty.
package session

import (
	"context"
	"sync"
)

// Storage key names. These survive process restarts in the durable stores
// and must not change between releases.
const (
	TokenKey     = "auth-token"
	LoggedOutKey = "user-logged-out"
)

// Store is the single writable source of authentication truth. No component
// caches the token beyond a single request's lifetime.
type Store interface {
	// Token returns the current access token, or "" when absent.
	Token(ctx context.Context) (string, error)

	// SetToken stores a new access token and clears the logged-out flag.
	SetToken(ctx context.Context, token string) error

	// Clear drops the token and sets the logged-out flag.
	Clear(ctx context.Context) error

	// LoggedOut reports whether the session is in the explicit
	// logged-out state.
	LoggedOut(ctx context.Context) (bool, error)
}

// MemoryStore is an in-process Store. It is the default for tests and for
// short-lived embedders that do not need the session to survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	token     string
	loggedOut bool
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.loggedOut = false
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.loggedOut = true
	return nil
}

func (s *MemoryStore) LoggedOut(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedOut, nil
}
