// Package cart owns shopping carts and their items. Cross-service reads
// (current customer, product data) go through the bus sender; everything
// else is local to the cart aggregate.
package cart

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"ecombus/internal/bus"
)

type Cart struct {
	ID      int     `json:"cartId"`
	ItemIDs []int   `json:"cartItemsIds"`
	Price   float64 `json:"cartPrice"`
}

type Item struct {
	ID        int     `json:"cartItemId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	ProductID int     `json:"productId"`
	CartID    int     `json:"cartId"`
}

type Store interface {
	FindByID(id int) (Cart, error)
	Save(c Cart) (Cart, error)
	DeleteByID(id int) error
	FindAll() []Cart
}

type ItemStore interface {
	FindByID(id int) (Item, error)
	Save(it Item) (Item, error)
	DeleteByID(id int) error
	FindAllByCartID(cartID int) []Item
	FindAllByProductID(productID int) []Item
	DeleteAllByCartID(cartID int)
	DeleteAllByProductID(productID int)
}

type memoryStore struct {
	mu     sync.RWMutex
	nextID int
	carts  map[int]Cart
}

func NewMemoryStore() Store {
	return &memoryStore{nextID: 1, carts: make(map[int]Cart)}
}

func (s *memoryStore) FindByID(id int) (Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[id]
	if !ok {
		return Cart{}, bus.Reject(bus.StatusNotFound, "the cart has not been found")
	}
	return c, nil
}

func (s *memoryStore) Save(c Cart) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID
		s.nextID++
	}
	s.carts[c.ID] = c
	return c, nil
}

func (s *memoryStore) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[id]; !ok {
		return bus.Reject(bus.StatusNotFound, "the cart has not been found")
	}
	delete(s.carts, id)
	return nil
}

func (s *memoryStore) FindAll() []Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Cart, 0, len(s.carts))
	for _, c := range s.carts {
		all = append(all, c)
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

func (s *memoryItemStore) FindByID(id int) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, bus.Reject(bus.StatusNotFound, "cart item has not been found")
	}
	return it, nil
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

func (s *memoryItemStore) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return bus.Reject(bus.StatusNotFound, "cart item has not been found")
	}
	delete(s.items, id)
	return nil
}

func (s *memoryItemStore) FindAllByCartID(cartID int) []Item {
	return s.filter(func(it Item) bool { return it.CartID == cartID })
}

func (s *memoryItemStore) FindAllByProductID(productID int) []Item {
	return s.filter(func(it Item) bool { return it.ProductID == productID })
}

func (s *memoryItemStore) filter(keep func(Item) bool) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryItemStore) DeleteAllByCartID(cartID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.items {
		if it.CartID == cartID {
			delete(s.items, id)
		}
	}
}

func (s *memoryItemStore) DeleteAllByProductID(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.items {
		if it.ProductID == productID {
			delete(s.items, id)
		}
	}
}

type Service struct {
	carts  Store
	items  ItemStore
	sender *Sender
	logger *zap.SugaredLogger
}

func NewService(carts Store, items ItemStore, sender *Sender, logger *zap.SugaredLogger) *Service {
	return &Service{carts: carts, items: items, sender: sender, logger: logger}
}

// GetCart hydrates the cart with the ids of its current items.
func (s *Service) GetCart(cartID int) (Cart, error) {
	c, err := s.carts.FindByID(cartID)
	if err != nil {
		return Cart{}, err
	}
	items := s.items.FindAllByCartID(cartID)
	c.ItemIDs = make([]int, 0, len(items))
	for _, it := range items {
		c.ItemIDs = append(c.ItemIDs, it.ID)
	}
	return c, nil
}

// ValidateCart is the order saga's gate: an empty cart is a business
// rejection, distinct from any transport or server failure.
func (s *Service) ValidateCart(cartID int) (Cart, error) {
	c, err := s.GetCart(cartID)
	if err != nil {
		return Cart{}, err
	}
	if len(c.ItemIDs) == 0 {
		return Cart{}, bus.Reject(bus.StatusCartInvalid, "your cart is currently empty")
	}
	return c, nil
}

// RefreshCartState recomputes the cart price as the sum of its item prices.
func (s *Service) RefreshCartState(cartID int) error {
	c, err := s.GetCart(cartID)
	if err != nil {
		return err
	}
	var price float64
	for _, it := range s.items.FindAllByCartID(cartID) {
		price += it.Price
	}
	c.Price = price
	_, err = s.carts.Save(c)
	return err
}

func (s *Service) RefreshAllCarts() error {
	for _, c := range s.carts.FindAll() {
		if err := s.RefreshCartState(c.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) AddCart() (Cart, error) {
	return s.carts.Save(Cart{Price: 0})
}

func (s *Service) DeleteCart(cartID int) error {
	if _, err := s.carts.FindByID(cartID); err != nil {
		return err
	}
	return s.carts.DeleteByID(cartID)
}

// AddItem puts one unit of the product into the caller's cart, fetching the
// customer and the product over the bus.
func (s *Service) AddItem(productID int, token string) (Item, error) {
	customer, err := s.sender.RetrieveCurrentCustomer(token)
	if err != nil {
		return Item{}, err
	}
	product, err := s.sender.RetrieveProduct(productID, token)
	if err != nil {
		return Item{}, err
	}

	cartID := customer.CartID
	if _, err := s.carts.FindByID(cartID); err != nil {
		return Item{}, err
	}

	item := Item{ProductID: productID, CartID: cartID, Quantity: 1}
	for _, existing := range s.items.FindAllByCartID(cartID) {
		if existing.ProductID == productID {
			item = existing
			item.Quantity++
			break
		}
	}

	if product.UnitStock < item.Quantity {
		return Item{}, bus.Reject(bus.StatusConflict, "there is a shortage of %s in stock", product.Name)
	}

	item.Price = LinePrice(product.Price, product.Discount, item.Quantity)
	stored, err := s.items.Save(item)
	if err != nil {
		return Item{}, err
	}
	if err := s.RefreshCartState(cartID); err != nil {
		return Item{}, err
	}
	return stored, nil
}

// RemoveItem deletes an item after checking it belongs to the caller's cart.
func (s *Service) RemoveItem(itemID int, token string) error {
	customer, err := s.sender.RetrieveCurrentCustomer(token)
	if err != nil {
		return err
	}
	item, err := s.items.FindByID(itemID)
	if err != nil {
		return err
	}
	if item.CartID != customer.CartID {
		return bus.Reject(bus.StatusForbidden, "operation not allowed")
	}
	if err := s.items.DeleteByID(itemID); err != nil {
		return err
	}
	return s.RefreshCartState(item.CartID)
}

func (s *Service) RemoveAllByCartID(cartID int) error {
	s.items.DeleteAllByCartID(cartID)
	return s.RefreshCartState(cartID)
}

func (s *Service) RemoveAllByProductID(productID int) error {
	s.items.DeleteAllByProductID(productID)
	return s.RefreshAllCarts()
}

// UpdateAllByProductID reprices every cart line holding the product after a
// catalog change.
func (s *Service) UpdateAllByProductID(productID int, token string) error {
	product, err := s.sender.RetrieveProduct(productID, token)
	if err != nil {
		return err
	}
	for _, it := range s.items.FindAllByProductID(productID) {
		it.Price = LinePrice(product.Price, product.Discount, it.Quantity)
		if _, err := s.items.Save(it); err != nil {
			return err
		}
	}
	return s.RefreshAllCarts()
}

func (s *Service) ListItems(cartID int) []Item {
	return s.items.FindAllByCartID(cartID)
}

// LinePrice applies the percentage discount to the unit price and scales by
// quantity.
func LinePrice(unitPrice, discount float64, quantity int) float64 {
	return (unitPrice - unitPrice*discount/100) * float64(quantity)
}
