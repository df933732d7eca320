package customer

import (
	"ecombus/internal/bus"
)

type addressReply struct {
	Status          int             `json:"status,omitempty"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}

type addressUpdatePayload struct {
	Address *ShippingAddress `json:"address"`
}

func RegisterRoutes(r *bus.Router, svc *Service) error {
	if err := r.Handle(bus.SubjectCustomerGetCurrent, onGetCurrent(svc), bus.RequireAuth()); err != nil {
		return err
	}
	if err := r.Handle("address.getAddress.*", onGetAddress(svc)); err != nil {
		return err
	}
	return r.Handle("address.update.*", onUpdateAddress(svc))
}

func onGetCurrent(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		return svc.CurrentCustomer(d.Principal)
	}
}

func onGetAddress(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		a, err := svc.GetAddress(d.ID)
		if err != nil {
			return nil, err
		}
		return addressReply{ShippingAddress: a}, nil
	}
}

func onUpdateAddress(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		var payload addressUpdatePayload
		if err := d.Decode(&payload); err != nil || payload.Address == nil {
			return nil, bus.Reject(bus.StatusInvalidRequest, "missing address node in payload")
		}
		updated, err := svc.UpdateAddress(*payload.Address, d.ID)
		if err != nil {
			return nil, err
		}
		return addressReply{Status: bus.StatusOK, ShippingAddress: updated}, nil
	}
}
