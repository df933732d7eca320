// Package order owns the order aggregate and the order-placement saga: a
// sequential chain of cross-service requests with no shared transaction and
// no compensation on partial failure.
package order

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"ecombus/internal/bus"
)

type Order struct {
	ID        int       `json:"orderId"`
	Price     float64   `json:"orderPrice"`
	CartID    int       `json:"cartId"`
	ItemIDs   []int     `json:"orderedItemsIds"`
	AddressID int       `json:"addressId"`
	CreatedAt time.Time `json:"createTime"`
}

type Item struct {
	ID              int     `json:"orderItemId"`
	Quantity        int     `json:"quantity"`
	Price           float64 `json:"price"`
	ProductName     string  `json:"productName"`
	ProductDiscount float64 `json:"productDiscount"`
	ProductPrice    float64 `json:"productPrice"`
	OrderID         int     `json:"orderId"`
}

// Address is a copy of the customer's shipping address at order time, so a
// later address edit does not rewrite order history.
type Address struct {
	ID       int    `json:"orderAddressId"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
	OrderID  int    `json:"orderId"`
}

type Store interface {
	FindByID(id int) (Order, error)
	Save(o Order) (Order, error)
	DeleteByID(id int) error
	FindAllByCartID(cartID int) []Order
	FindAll() []Order
}

type ItemStore interface {
	Save(it Item) (Item, error)
	FindAllByOrderID(orderID int) []Item
	DeleteAllByOrderID(orderID int)
}

type AddressStore interface {
	FindByID(id int) (Address, error)
	Save(a Address) (Address, error)
}

type memoryStore struct {
	mu     sync.RWMutex
	nextID int
	orders map[int]Order
}

func NewMemoryStore() Store {
	return &memoryStore{nextID: 1, orders: make(map[int]Order)}
}

func (s *memoryStore) FindByID(id int) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, bus.Reject(bus.StatusNotFound, "the order has not been found")
	}
	return o, nil
}

func (s *memoryStore) Save(o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.nextID
		s.nextID++
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *memoryStore) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return bus.Reject(bus.StatusNotFound, "the order has not been found")
	}
	delete(s.orders, id)
	return nil
}

func (s *memoryStore) FindAllByCartID(cartID int) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.orders {
		if o.CartID == cartID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) FindAll() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

type memoryItemStore struct {
	mu     sync.RWMutex
	nextID int
	items  map[int]Item
}

func NewMemoryItemStore() ItemStore {
	return &memoryItemStore{nextID: 1, items: make(map[int]Item)}
}

func (s *memoryItemStore) Save(it Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == 0 {
		it.ID = s.nextID
		s.nextID++
	}
	s.items[it.ID] = it
	return it, nil
}

func (s *memoryItemStore) FindAllByOrderID(orderID int) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, it := range s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryItemStore) DeleteAllByOrderID(orderID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.items {
		if it.OrderID == orderID {
			delete(s.items, id)
		}
	}
}

type memoryAddressStore struct {
	mu        sync.RWMutex
	nextID    int
	addresses map[int]Address
}

func NewMemoryAddressStore() AddressStore {
	return &memoryAddressStore{nextID: 1, addresses: make(map[int]Address)}
}

func (s *memoryAddressStore) FindByID(id int) (Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.addresses[id]
	if !ok {
		return Address{}, bus.Reject(bus.StatusNotFound, "the order address has not been found")
	}
	return a, nil
}

func (s *memoryAddressStore) Save(a Address) (Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.nextID
		s.nextID++
	}
	s.addresses[a.ID] = a
	return a, nil
}

type Service struct {
	orders    Store
	items     ItemStore
	addresses AddressStore
	sender    *Sender
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewService(orders Store, items ItemStore, addresses AddressStore, sender *Sender, logger *zap.SugaredLogger) *Service {
	return &Service{
		orders:    orders,
		items:     items,
		addresses: addresses,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) GetOrderByID(orderID int) (Order, error) {
	return s.orders.FindByID(orderID)
}

func (s *Service) ListAll() []Order {
	return s.orders.FindAll()
}

func (s *Service) ListAllByCartID(cartID int) []Order {
	return s.orders.FindAllByCartID(cartID)
}

func (s *Service) DeleteOrder(orderID int) error {
	if _, err := s.orders.FindByID(orderID); err != nil {
		return err
	}
	s.items.DeleteAllByOrderID(orderID)
	return s.orders.DeleteByID(orderID)
}

func (s *Service) DeleteAllByCartID(cartID int) error {
	for _, o := range s.orders.FindAllByCartID(cartID) {
		if err := s.DeleteOrder(o.ID); err != nil {
			return err
		}
	}
	return nil
}
