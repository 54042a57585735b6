package sales

import (
	"sync"

	"pharmasys/m/domain"
)

// CartStore holds each session's draft cart in memory, keyed by the
// authenticated user. Carts are advisory state: reads copy, writes
// replace, last write wins. Only finalize guards against races.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]domain.Cart)}
}

// Get returns a copy of the session's cart, empty if none exists.
func (s *CartStore) Get(key string) *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.carts[key]
	if !ok {
		return &domain.Cart{}
	}
	cart := domain.Cart{Lines: make([]domain.CartLine, len(stored.Lines))}
	copy(cart.Lines, stored.Lines)
	return &cart
}

// Put replaces the session's cart.
func (s *CartStore) Put(key string, cart *domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]domain.CartLine, len(cart.Lines))
	copy(lines, cart.Lines)
	s.carts[key] = domain.Cart{Lines: lines}
}

// Delete drops the session's cart, used after a confirmed commit.
func (s *CartStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, key)
}
