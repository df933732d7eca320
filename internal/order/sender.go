package order

import (
	"errors"
	"fmt"

	"ecombus/internal/bus"
)

// CustomerInfo is the order service's view of the customer reply.
type CustomerInfo struct {
	CustomerID        int `json:"customerId"`
	CartID            int `json:"cartId"`
	ShippingAddressID int `json:"shippingAddressId"`
}

type CartInfo struct {
	CartID int     `json:"cartId"`
	Price  float64 `json:"cartPrice"`
}

type CartItemInfo struct {
	ItemID    int     `json:"cartItemId"`
	ProductID int     `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type AddressInfo struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
}

type ProductInfo struct {
	ProductID int     `json:"productId"`
	Name      string  `json:"productName"`
	Price     float64 `json:"productPrice"`
	UnitStock int     `json:"unitStock"`
	Discount  float64 `json:"discount"`
}

// Sender is the order service's outbound half: every saga step that touches
// another service goes through here, one blocking request at a time.
type Sender struct {
	caller *bus.Caller
}

func NewSender(caller *bus.Caller) *Sender {
	return &Sender{caller: caller}
}

// opts tags every saga request with the order service as initiator, next to
// the caller's bearer token.
func (s *Sender) opts(token string) []bus.RequestOption {
	return []bus.RequestOption{
		bus.WithBearerToken(token),
		bus.WithRequestInitiator("order-service"),
	}
}

func (s *Sender) RetrieveCurrentCustomer(token string) (CustomerInfo, error) {
	reply, err := s.caller.Call(bus.SubjectCustomerGetCurrent, nil, s.opts(token)...)
	if err != nil {
		return CustomerInfo{}, err
	}
	var info CustomerInfo
	if err := reply.Decode(&info); err != nil {
		return CustomerInfo{}, err
	}
	return info, nil
}

// ValidateCart maps the cart service's empty-cart rejection onto
// ErrCartEmpty so the saga can tell it apart from a server failure.
func (s *Sender) ValidateCart(cartID int, token string) (CartInfo, error) {
	reply, err := s.caller.Call(bus.CartValidateSubject(cartID), nil, s.opts(token)...)
	if err != nil {
		var remote *bus.RemoteError
		if errors.As(err, &remote) && remote.StatusCode == bus.StatusCartInvalid {
			return CartInfo{}, fmt.Errorf("%w: %s", ErrCartEmpty, remote.Message)
		}
		return CartInfo{}, err
	}
	var wrapper struct {
		Cart CartInfo `json:"cart"`
	}
	if err := reply.Decode(&wrapper); err != nil {
		return CartInfo{}, err
	}
	return wrapper.Cart, nil
}

func (s *Sender) RetrieveShippingAddress(addressID int, token string) (AddressInfo, error) {
	reply, err := s.caller.Call(bus.AddressGetSubject(addressID), nil, s.opts(token)...)
	if err != nil {
		return AddressInfo{}, err
	}
	var wrapper struct {
		ShippingAddress AddressInfo `json:"shippingAddress"`
	}
	if err := reply.Decode(&wrapper); err != nil {
		return AddressInfo{}, err
	}
	return wrapper.ShippingAddress, nil
}

func (s *Sender) RetrieveCartItems(cartID int, token string) ([]CartItemInfo, error) {
	reply, err := s.caller.Call(bus.CartGetItemsSubject(cartID), nil, s.opts(token)...)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		CartItems []CartItemInfo `json:"cartItems"`
	}
	if err := reply.Decode(&wrapper); err != nil {
		return nil, err
	}
	return wrapper.CartItems, nil
}

func (s *Sender) RetrieveProduct(productID int, token string) (ProductInfo, error) {
	reply, err := s.caller.Call(bus.ProductGetSubject(productID), nil, s.opts(token)...)
	if err != nil {
		return ProductInfo{}, err
	}
	var wrapper struct {
		Product ProductInfo `json:"product"`
	}
	if err := reply.Decode(&wrapper); err != nil {
		return ProductInfo{}, err
	}
	return wrapper.Product, nil
}

// UpdateProduct pushes the whole product back, decremented stock included.
// There is no version check: two concurrent sagas can both read the same
// stock and overwrite each other's write.
func (s *Sender) UpdateProduct(p ProductInfo, productID int, token string) error {
	payload := struct {
		Product ProductInfo `json:"product"`
	}{Product: p}
	_, err := s.caller.Call(bus.ProductUpdateSubject(productID), payload, s.opts(token)...)
	return err
}

func (s *Sender) RemoveAllByCartID(cartID int, token string) error {
	_, err := s.caller.Call(bus.CartRemoveAllByCartIDSubject(cartID), nil, s.opts(token)...)
	return err
}

func (s *Sender) RefreshCartState(cartID int, token string) error {
	_, err := s.caller.Call(bus.CartRefreshStateSubject(cartID), nil, s.opts(token)...)
	return err
}
