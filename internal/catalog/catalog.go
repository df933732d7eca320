// Package catalog owns products. Stock is decremented by the order saga
// through plain get/update messages with no version guard, so concurrent
// orders can overwrite each other's stock write (lost update). That hazard
// is inherited behavior, kept on purpose.
package catalog

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"ecombus/internal/bus"
)

type Product struct {
	ID          int     `json:"productId"`
	Name        string  `json:"productName"`
	Description string  `json:"productDescription,omitempty"`
	Brand       string  `json:"productBrand,omitempty"`
	Model       string  `json:"productModel,omitempty"`
	Price       float64 `json:"productPrice"`
	UnitStock   int     `json:"unitStock"`
	Discount    float64 `json:"discount"`
	ImageID     int     `json:"imageId,omitempty"`
	CategoryID  int     `json:"productCategoryId,omitempty"`
}

type Store interface {
	FindByID(id int) (Product, error)
	Save(p Product) (Product, error)
	DeleteByID(id int) error
	FindAll() []Product
}

type memoryStore struct {
	mu       sync.RWMutex
	nextID   int
	products map[int]Product
}

func NewMemoryStore() Store {
	return &memoryStore{nextID: 1, products: make(map[int]Product)}
}

func (s *memoryStore) FindByID(id int) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, bus.Reject(bus.StatusUnprocessable, "the product has not been found")
	}
	return p, nil
}

func (s *memoryStore) Save(p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID
		s.nextID++
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *memoryStore) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return bus.Reject(bus.StatusUnprocessable, "the product has not been found")
	}
	delete(s.products, id)
	return nil
}

func (s *memoryStore) FindAll() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

type Service struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) GetProduct(productID int) (Product, error) {
	return s.store.FindByID(productID)
}

// UpdateProduct replaces the stored product wholesale, stock included.
func (s *Service) UpdateProduct(p Product, productID int) (Product, error) {
	if _, err := s.store.FindByID(productID); err != nil {
		return Product{}, err
	}
	p.ID = productID
	return s.store.Save(p)
}

func (s *Service) AddProduct(p Product) (Product, error) {
	p.ID = 0
	return s.store.Save(p)
}

func (s *Service) ListAll() []Product {
	return s.store.FindAll()
}
