package customer

import (
	"errors"

	"ecombus/internal/bus"
)

type Sender struct {
	caller *bus.Caller
}

func NewSender(caller *bus.Caller) *Sender {
	return &Sender{caller: caller}
}

type createdReply struct {
	Status int `json:"status"`
	ID     int `json:"id"`
}

// CreateUser asks the identity service for a new user; a 409 surfaces as a
// duplicate-email rejection to the registration caller.
func (s *Sender) CreateUser(payload UserPayload) (int, error) {
	reply, err := s.caller.Call(bus.SubjectUserCreate, payload)
	if err != nil {
		var remote *bus.RemoteError
		if errors.As(err, &remote) && remote.StatusCode == bus.StatusConflict {
			return 0, bus.Reject(bus.StatusConflict, "email already exists")
		}
		return 0, err
	}
	var created createdReply
	if err := reply.Decode(&created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, &bus.RemoteError{Subject: bus.SubjectUserCreate, StatusCode: bus.StatusServerError, Message: "user creation reply carried no id"}
	}
	return created.ID, nil
}

func (s *Sender) CreateCart() (int, error) {
	reply, err := s.caller.Call(bus.SubjectCartCreate, nil)
	if err != nil {
		return 0, err
	}
	var created createdReply
	if err := reply.Decode(&created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, &bus.RemoteError{Subject: bus.SubjectCartCreate, StatusCode: bus.StatusServerError, Message: "cart creation reply carried no id"}
	}
	return created.ID, nil
}

func (s *Sender) DeleteCart(cartID int, token string) error {
	_, err := s.caller.Call(bus.CartDeleteSubject(cartID), nil, bus.WithBearerToken(token))
	return err
}

func (s *Sender) DeleteAllOrders(cartID int, token string) error {
	_, err := s.caller.Call(bus.OrderDeleteAllSubject(cartID), nil, bus.WithBearerToken(token))
	return err
}

// NotifyUserDeleted is fire-and-forget: nobody waits for user cleanup.
func (s *Sender) NotifyUserDeleted(userID int, token string) error {
	payload := map[string]int{"userId": userID}
	return s.caller.Notify(bus.UserDeleteSubject(userID), payload,
		bus.WithEventToken(token), bus.WithEventInitiator("customer-service"))
}
