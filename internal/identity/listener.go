package identity

import (
	"fmt"

	"ecombus/internal/bus"
)

type statusReply struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	ID      int    `json:"id,omitempty"`
}

// RegisterRoutes binds the identity subjects onto a router.
func RegisterRoutes(r *bus.Router, svc *Service) error {
	routes := []struct {
		pattern string
		handler bus.HandlerFunc
		opts    []bus.RouteOption
	}{
		{"user.get", onUserGet(svc), []bus.RouteOption{bus.RequireAuth()}},
		{"user.create", onUserCreate(svc), nil},
		{"user.delete.*", onUserOp(svc.DeleteUser, "user %d successfully deleted"), nil},
		{"user.suspend.*", onUserOp(svc.SuspendUser, "user %d suspended"), nil},
		{"user.reactivate.*", onUserOp(svc.ReactivateUser, "user %d reactivated"), nil},
	}
	for _, rt := range routes {
		if err := r.Handle(rt.pattern, rt.handler, rt.opts...); err != nil {
			return err
		}
	}
	return nil
}

func onUserGet(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		return svc.CurrentUser(d.Principal)
	}
}

func onUserCreate(svc *Service) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		var u User
		if err := d.Decode(&u); err != nil {
			return nil, bus.Reject(bus.StatusInvalidRequest, "malformed user payload")
		}
		created, err := svc.AddUser(u)
		if err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, ID: created.ID}, nil
	}
}

func onUserOp(op func(int) error, successFormat string) bus.HandlerFunc {
	return func(d *bus.Delivery) (any, error) {
		if err := op(d.ID); err != nil {
			return nil, err
		}
		return statusReply{Status: bus.StatusOK, Message: fmt.Sprintf(successFormat, d.ID)}, nil
	}
}
