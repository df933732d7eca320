package cart

import (
	"ecombus/internal/bus"
)

// CustomerInfo is the cart service's view of a customer reply. Services
// share ids over the wire, not types.
type CustomerInfo struct {
	CustomerID        int `json:"customerId"`
	CartID            int `json:"cartId"`
	ShippingAddressID int `json:"shippingAddressId"`
}

// ProductInfo is the cart service's view of a catalog reply.
type ProductInfo struct {
	ProductID int     `json:"productId"`
	Name      string  `json:"productName"`
	Price     float64 `json:"productPrice"`
	UnitStock int     `json:"unitStock"`
	Discount  float64 `json:"discount"`
}

// Sender is the cart service's outbound half.
type Sender struct {
	caller *bus.Caller
}

func NewSender(caller *bus.Caller) *Sender {
	return &Sender{caller: caller}
}

func (s *Sender) RetrieveCurrentCustomer(token string) (CustomerInfo, error) {
	reply, err := s.caller.Call(bus.SubjectCustomerGetCurrent, nil, bus.WithBearerToken(token))
	if err != nil {
		return CustomerInfo{}, err
	}
	var info CustomerInfo
	if err := reply.Decode(&info); err != nil {
		return CustomerInfo{}, err
	}
	return info, nil
}

func (s *Sender) RetrieveProduct(productID int, token string) (ProductInfo, error) {
	reply, err := s.caller.Call(bus.ProductGetSubject(productID), nil, bus.WithBearerToken(token))
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
