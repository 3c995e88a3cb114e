package devserver

import (
	"context"
	"errors"
	"sync"

	"github.com/example/carside/pkg/models"
)

var ErrOrderNotFound = errors.New("devserver: order not found")

// OrderStore persists the stub backend's orders.
type OrderStore interface {
	Put(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	SetStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	SetRating(ctx context.Context, id string, rating int) error
}

// MemoryStore is the default store; orders live for the process lifetime.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	ids    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*models.Order)}
}

func (s *MemoryStore) Put(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		s.ids = append(s.ids, order.ID)
	}
	clone := *order
	s.orders[order.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.ids))
	// Newest first, matching the backend's history endpoint.
	for i := len(s.ids) - 1; i >= 0; i-- {
		out = append(out, *s.orders[s.ids[i]])
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order.Status = status
	clone := *order
	return &clone, nil
}

func (s *MemoryStore) SetRating(ctx context.Context, id string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.Rating = &rating
	return nil
}
