package cart

import (
	"fmt"

	"ecombus/internal/bus"
)

type statusReply struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	ID      int    `json:"id,omitempty"`
}

type cartReply struct {
	Cart Cart `json:"cart"`
}

type itemsReply struct {
	Status    int    `json:"status"`
	CartID    int    `json:"cartId"`
	CartItems []Item `json:"cartItems"`
}

func RegisterRoutes(r *bus.Router, svc *Service) error {
	routes := []struct {
		pattern string
		handler bus.HandlerFunc
	}{
		{"cart.create", onCartCreate(svc)},
		{"cart.delete.*", onCartDelete(svc)},
		{"cart.validate.*", onCartValidate(svc)},
		{"cart.getItems.*", onGetItems(svc)},
		{"cart.removeAllByCartId.*", onClearCart(svc)},
		{"cart.refreshState.*", onRefreshState(svc)},
		{"cart.updateAllByProductId.*", onUpdateByProduct(svc)},
		{"cart.removeAllByProductId.*", onRemoveByProduct(svc)},
	}
	for _, rt := range routes {
		if err := r.Handle(rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

func onCartCreate(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		c, err := svc.AddCart()
		if err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, ID: c.ID}, nil
	}
}

func onCartDelete(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		if err := svc.DeleteCart(d.ID); err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, Message: "cart deleted"}, nil
	}
}

func onCartValidate(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		c, err := svc.ValidateCart(d.ID)
		if err != nil {
			return nil, err
		}
		return cartReply{Cart: c}, nil
	}
}

func onGetItems(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		items := svc.ListItems(d.ID)
		if items == nil {
			items = []Item{}
		}
		return itemsReply{Status: bus.StatusOK, CartID: d.ID, CartItems: items}, nil
	}
}

func onClearCart(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		if err := svc.RemoveAllByCartID(d.ID); err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, Message: fmt.Sprintf("all items removed from cart %d", d.ID)}, nil
	}
}

func onRefreshState(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		if err := svc.RefreshCartState(d.ID); err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, Message: fmt.Sprintf("cart state refreshed for cart %d", d.ID)}, nil
	}
}

func onUpdateByProduct(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		if err := svc.UpdateAllByProductID(d.ID, d.Token); err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, Message: "cart items updated"}, nil
	}
}

func onRemoveByProduct(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		if err := svc.RemoveAllByProductID(d.ID); err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, Message: "product removed from carts"}, nil
	}
}
