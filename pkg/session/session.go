// Package session holds the authenticated user and the opaque bearer token
// for the active app session. Nothing here is persisted; a fresh login
// populates a fresh store.
package session

import (
	"errors"
	"sync"

	"github.com/example/carside/pkg/models"
)

var ErrNotAuthenticated = errors.New("session: not authenticated")

// TokenSource supplies the bearer token attached to every API request.
type TokenSource interface {
	Token() (string, error)
}

// Store is an in-memory session store.
type Store struct {
	mu    sync.RWMutex
	token string
	user  *models.User
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SetSession(token string, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

func (s *Store) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// StaticToken is a TokenSource with a fixed token, for tools and tests.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNotAuthenticated
	}
	return string(t), nil
}
