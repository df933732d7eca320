package bus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

type EventOption interface {
	configureEvent(e *Event)
}

// Event is a fire-and-forget notification: no reply-to address, so the
// receiver must not attempt to reply.
type Event struct {
	Name      string
	Payload   any
	Metadata  map[string]string
	CreatedAt time.Time
}

func NewEvent(name string, payload any, opts ...EventOption) Event {
	e := Event{
		Name:      name,
		Payload:   payload,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
	for _, option := range opts {
		option.configureEvent(&e)
	}
	return e
}

type eventInitiator struct {
	Initiator string
}

func (o *eventInitiator) configureEvent(e *Event) {
	e.Metadata[InitiatorMD] = o.Initiator
}

// WithEventInitiator adds the event initiator to the event metadata
func WithEventInitiator(initiator string) EventOption {
	return &eventInitiator{Initiator: initiator}
}

type eventToken struct {
	Token string
}

func (o *eventToken) configureEvent(e *Event) {
	if o.Token != "" {
		e.Metadata[AuthorizationHeader] = BearerPrefix + o.Token
	}
}

// WithEventToken forwards a bearer token on the event headers.
func WithEventToken(token string) EventOption {
	return &eventToken{Token: token}
}

func EventToNatsMsg(e Event) (*nats.Msg, error) {
	msg := nats.NewMsg(e.Name)
	for k, v := range e.Metadata {
		msg.Header.Add(k, v)
	}
	msg.Header.Add(CreatedAtHeader, e.CreatedAt.Format(time.RFC3339Nano))
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	msg.Data = data
	return msg, nil
}
