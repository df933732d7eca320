package catalog

import (
	"ecombus/internal/bus"
)

// productReply wraps the product under a named field, which is how the
// catalog's replies are shaped on the wire.
type productReply struct {
	Product Product `json:"product"`
}

type updatePayload struct {
	Product *Product `json:"product"`
}

func RegisterRoutes(r *bus.Router, svc *Service) error {
	if err := r.Handle("product.get.*", onProductGet(svc)); err != nil {
		return err
	}
	return r.Handle("product.update.*", onProductUpdate(svc))
}

func onProductGet(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		p, err := svc.GetProduct(d.ID)
		if err != nil {
			return nil, err
		}
		return productReply{Product: p}, nil
	}
}

func onProductUpdate(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		var payload updatePayload
		if err := d.Decode(&payload); err != nil || payload.Product == nil {
			return nil, bus.Reject(bus.StatusInvalidRequest, "invalid payload format")
		}
		updated, err := svc.UpdateProduct(*payload.Product, d.ID)
		if err != nil {
			return nil, err
		}
		return productReply{Product: updated}, nil
	}
}
