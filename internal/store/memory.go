package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// InMemoryStore is a map-backed Store used in tests and DSN-less runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account // keyed by UID
	sellers  map[string]models.Seller  // keyed by UID
	products map[string]models.Product // keyed by ID
	orders   map[string]models.Order   // keyed by ID
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[string]models.Account),
		sellers:  make(map[string]models.Seller),
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
	}
}

func (s *InMemoryStore) CreateAccount(a models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.UID] = a
	return nil
}

func (s *InMemoryStore) GetAccountByEmail(email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			account := a
			return &account, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) CreateSeller(sel models.Seller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sellers[sel.UID] = sel
	return nil
}

func (s *InMemoryStore) GetSeller(uid string) (*models.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.sellers[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &sel, nil
}

func (s *InMemoryStore) GetSellerByEmail(email string) (*models.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sel := range s.sellers {
		if strings.EqualFold(sel.Email, email) {
			seller := sel
			return &seller, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) UpdateSellerStatus(uid string, status models.SellerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.sellers[uid]
	if !ok {
		return ErrNotFound
	}
	sel.Status = status
	s.sellers[uid] = sel
	return nil
}

func (s *InMemoryStore) CreateProduct(p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *InMemoryStore) GetProduct(id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) ListProductsBySeller(sellerID string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Product
	for _, p := range s.products {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	sortProductsByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListActiveProducts() ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Product
	for _, p := range s.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sortProductsByCreation(out)
	return out, nil
}

func (s *InMemoryStore) UpdateProduct(p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.products[p.ID] = p
	return nil
}

func (s *InMemoryStore) CreateOrder(o models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

func (s *InMemoryStore) ListOrdersBySeller(sellerID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.SellerID == sellerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateOrderStatus(id string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	slog.Debug("InMemoryStore closed")
	return nil
}

func sortProductsByCreation(products []models.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
}
