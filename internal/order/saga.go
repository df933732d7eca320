package order

import (
	"fmt"

	"ecombus/internal/bus"
)

// PlaceOrder runs the order-placement saga for the authenticated caller: a
// serial chain of cross-service requests, each blocking until reply or
// timeout. There is no compensation: a failure partway through item
// processing leaves earlier stock decrements and persisted order items in
// place. The order row itself is only persisted once every item has cleared
// its stock check, so an aborted saga never leaves an Order behind.
func (s *Service) PlaceOrder(token string) (Order, error) {
	customer, err := s.sender.RetrieveCurrentCustomer(token)
	if err != nil {
		return Order{}, fmt.Errorf("order: fetch customer: %w", err)
	}
	if customer.CartID == 0 || customer.ShippingAddressID == 0 {
		return Order{}, bus.Reject(bus.StatusServerError, "customer data is missing required fields")
	}

	cart, err := s.sender.ValidateCart(customer.CartID, token)
	if err != nil {
		return Order{}, err
	}

	shipping, err := s.sender.RetrieveShippingAddress(customer.ShippingAddressID, token)
	if err != nil {
		return Order{}, fmt.Errorf("order: fetch shipping address: %w", err)
	}
	if shipping.Address == "" || shipping.City == "" {
		return Order{}, bus.Reject(bus.StatusServerError, "shipping address data is missing required fields")
	}

	// Addresses are copied, not referenced: a later edit to the customer's
	// address must not change this order.
	storedAddress, err := s.addresses.Save(Address{
		Address:  shipping.Address,
		City:     shipping.City,
		State:    shipping.State,
		Country:  shipping.Country,
		Postcode: shipping.Postcode,
	})
	if err != nil {
		return Order{}, err
	}

	cartItems, err := s.sender.RetrieveCartItems(customer.CartID, token)
	if err != nil {
		return Order{}, fmt.Errorf("order: fetch cart items: %w", err)
	}

	var orderedItems []Item
	for _, cartItem := range cartItems {
		product, err := s.sender.RetrieveProduct(cartItem.ProductID, token)
		if err != nil {
			return Order{}, fmt.Errorf("order: fetch product %d: %w", cartItem.ProductID, err)
		}

		if cartItem.Quantity > product.UnitStock {
			return Order{}, &OutOfStockError{ProductName: product.Name}
		}

		linePrice := (product.Price - product.Price*product.Discount/100) * float64(cartItem.Quantity)

		// Unversioned read-modify-write across two messages.
		updated := product
		updated.UnitStock = product.UnitStock - cartItem.Quantity
		if err := s.sender.UpdateProduct(updated, cartItem.ProductID, token); err != nil {
			return Order{}, fmt.Errorf("order: update stock for product %d: %w", cartItem.ProductID, err)
		}

		stored, err := s.items.Save(Item{
			Quantity:        cartItem.Quantity,
			Price:           linePrice,
			ProductName:     product.Name,
			ProductDiscount: product.Discount,
			ProductPrice:    product.Price,
		})
		if err != nil {
			return Order{}, err
		}
		orderedItems = append(orderedItems, stored)
	}

	storedOrder, err := s.orders.Save(Order{
		Price:     cart.Price,
		CartID:    customer.CartID,
		AddressID: storedAddress.ID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return Order{}, err
	}

	storedAddress.OrderID = storedOrder.ID
	if _, err := s.addresses.Save(storedAddress); err != nil {
		return Order{}, err
	}

	itemIDs := make([]int, 0, len(orderedItems))
	for _, it := range orderedItems {
		it.OrderID = storedOrder.ID
		if _, err := s.items.Save(it); err != nil {
			return Order{}, err
		}
		itemIDs = append(itemIDs, it.ID)
	}
	storedOrder.ItemIDs = itemIDs
	storedOrder, err = s.orders.Save(storedOrder)
	if err != nil {
		return Order{}, err
	}

	if err := s.sender.RemoveAllByCartID(customer.CartID, token); err != nil {
		return Order{}, fmt.Errorf("order: clear cart %d: %w", customer.CartID, err)
	}
	if err := s.sender.RefreshCartState(customer.CartID, token); err != nil {
		return Order{}, fmt.Errorf("order: refresh cart %d: %w", customer.CartID, err)
	}

	s.logger.Infof("order: placed order %d for cart %d (%d items)", storedOrder.ID, customer.CartID, len(itemIDs))
	return storedOrder, nil
}
