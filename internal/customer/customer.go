// Package customer owns customer records and shipping addresses, and drives
// the registration fan-out (user.create, cart.create) over the bus.
package customer

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"ecombus/internal/bus"
)

type Customer struct {
	ID                int `json:"customerId"`
	UserID            int `json:"userId"`
	CartID            int `json:"cartId"`
	ShippingAddressID int `json:"shippingAddressId"`
}

type ShippingAddress struct {
	ID         int    `json:"shippingAddressId"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	Postcode   string `json:"postcode"`
	CustomerID int    `json:"customerId"`
}

type Store interface {
	FindByID(id int) (Customer, error)
	FindByUserID(userID int) (Customer, error)
	Save(c Customer) (Customer, error)
	DeleteByID(id int) error
	FindAll() []Customer
}

type AddressStore interface {
	FindByID(id int) (ShippingAddress, error)
	Save(a ShippingAddress) (ShippingAddress, error)
	DeleteByID(id int) error
}

type memoryStore struct {
	mu        sync.RWMutex
	nextID    int
	customers map[int]Customer
}

func NewMemoryStore() Store {
	return &memoryStore{nextID: 1, customers: make(map[int]Customer)}
}

func (s *memoryStore) FindByID(id int) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, bus.Reject(bus.StatusNotFound, "the customer has not been found")
	}
	return c, nil
}

func (s *memoryStore) FindByUserID(userID int) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.UserID == userID {
			return c, nil
		}
	}
	return Customer{}, bus.Reject(bus.StatusNotFound, "the customer has not been found")
}

func (s *memoryStore) Save(c Customer) (Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID
		s.nextID++
	}
	s.customers[c.ID] = c
	return c, nil
}

func (s *memoryStore) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return bus.Reject(bus.StatusNotFound, "the customer has not been found")
	}
	delete(s.customers, id)
	return nil
}

func (s *memoryStore) FindAll() []Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Customer, 0, len(s.customers))
	for _, c := range s.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

type memoryAddressStore struct {
	mu        sync.RWMutex
	nextID    int
	addresses map[int]ShippingAddress
}

func NewMemoryAddressStore() AddressStore {
	return &memoryAddressStore{nextID: 1, addresses: make(map[int]ShippingAddress)}
}

func (s *memoryAddressStore) FindByID(id int) (ShippingAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.addresses[id]
	if !ok {
		return ShippingAddress{}, bus.Reject(bus.StatusNotFound, "the address has not been found")
	}
	return a, nil
}

func (s *memoryAddressStore) Save(a ShippingAddress) (ShippingAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.nextID
		s.nextID++
	}
	s.addresses[a.ID] = a
	return a, nil
}

func (s *memoryAddressStore) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[id]; !ok {
		return bus.Reject(bus.StatusNotFound, "the address has not been found")
	}
	delete(s.addresses, id)
	return nil
}

// RegistrationForm carries everything a new customer needs: the identity
// payload, the customer shell and the initial shipping address.
type RegistrationForm struct {
	User            UserPayload     `json:"user"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}

type UserPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type Service struct {
	customers Store
	addresses AddressStore
	sender    *Sender
	logger    *zap.SugaredLogger
}

func NewService(customers Store, addresses AddressStore, sender *Sender, logger *zap.SugaredLogger) *Service {
	return &Service{customers: customers, addresses: addresses, sender: sender, logger: logger}
}

// Register fans out user and cart creation over the bus, then persists the
// address and the customer with the returned ids.
func (s *Service) Register(form RegistrationForm) (Customer, error) {
	userID, err := s.sender.CreateUser(form.User)
	if err != nil {
		return Customer{}, err
	}
	cartID, err := s.sender.CreateCart()
	if err != nil {
		return Customer{}, err
	}

	address, err := s.addresses.Save(form.ShippingAddress)
	if err != nil {
		return Customer{}, err
	}
	stored, err := s.customers.Save(Customer{
		UserID:            userID,
		CartID:            cartID,
		ShippingAddressID: address.ID,
	})
	if err != nil {
		return Customer{}, err
	}

	address.CustomerID = stored.ID
	if _, err := s.addresses.Save(address); err != nil {
		return Customer{}, err
	}
	s.logger.Infof("customer: registered customer %d (user %d, cart %d)", stored.ID, userID, cartID)
	return stored, nil
}

// CurrentCustomer resolves the customer owned by the authenticated user.
func (s *Service) CurrentCustomer(p *bus.Principal) (Customer, error) {
	return s.customers.FindByUserID(p.UserID)
}

func (s *Service) GetAddress(addressID int) (ShippingAddress, error) {
	return s.addresses.FindByID(addressID)
}

func (s *Service) UpdateAddress(a ShippingAddress, addressID int) (ShippingAddress, error) {
	existing, err := s.addresses.FindByID(addressID)
	if err != nil {
		return ShippingAddress{}, err
	}
	a.ID = addressID
	a.CustomerID = existing.CustomerID
	return s.addresses.Save(a)
}

// DeleteCustomer removes the customer and fans out cleanup: orders for the
// cart, the cart itself, and a fire-and-forget user.delete event.
func (s *Service) DeleteCustomer(customerID int, token string) error {
	c, err := s.customers.FindByID(customerID)
	if err != nil {
		return err
	}
	if err := s.sender.DeleteAllOrders(c.CartID, token); err != nil {
		return err
	}
	if err := s.sender.DeleteCart(c.CartID, token); err != nil {
		return err
	}
	if err := s.customers.DeleteByID(customerID); err != nil {
		return err
	}
	if c.ShippingAddressID != 0 {
		s.addresses.DeleteByID(c.ShippingAddressID)
	}
	if err := s.sender.NotifyUserDeleted(c.UserID, token); err != nil {
		s.logger.Warnf("customer: user.delete event for user %d: %v", c.UserID, err)
	}
	return nil
}
