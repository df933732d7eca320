package order

import (
	"fmt"

	"ecombus/internal/bus"
)

type statusReply struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

func RegisterRoutes(r *bus.Router, svc *Service) error {
	return r.Handle("order.deleteAll.*", onOrdersDelete(svc))
}

func onOrdersDelete(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		if err := svc.DeleteAllByCartID(d.ID); err != nil {
			return nil, err
		}
		return statusReply{
			Status:  bus.StatusOK,
			Message: fmt.Sprintf("all orders for cart %d deleted successfully", d.ID),
		}, nil
	}
}
