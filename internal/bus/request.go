package bus

import (
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type RequestOption interface {
	configureRequest(r *Request)
}

// Request is the outbound half of the envelope: a subject, an opaque JSON
// payload and a header bag. The reply address is supplied by the transport
// as an ephemeral inbox, one per outstanding request.
type Request struct {
	ID        string
	Subject   string
	Data      []byte
	Metadata  map[string]string
	CreatedAt time.Time
}

func NewRequest(subject string, data []byte, opts ...RequestOption) Request {
	r := Request{
		ID:        uuid.NewString(),
		Subject:   subject,
		Data:      data,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
	for _, option := range opts {
		option.configureRequest(&r)
	}
	return r
}

// * Request options **************************************************

type requestToken struct {
	Token string
}

func (o *requestToken) configureRequest(r *Request) {
	if o.Token != "" {
		r.Metadata[AuthorizationHeader] = BearerPrefix + o.Token
	}
}

// WithBearerToken forwards the caller's bearer token on the Authorization
// header so the remote listener can authenticate the principal.
func WithBearerToken(token string) RequestOption {
	return &requestToken{Token: token}
}

type requestInitiator struct {
	Initiator string
}

func (o *requestInitiator) configureRequest(r *Request) {
	r.Metadata[InitiatorMD] = o.Initiator
}

// WithRequestInitiator adds the request initiator to the request metadata
func WithRequestInitiator(initiator string) RequestOption {
	return &requestInitiator{Initiator: initiator}
}

func RequestToNatsMsg(r Request) *nats.Msg {
	msg := nats.NewMsg(r.Subject)
	msg.Data = r.Data
	for k, v := range r.Metadata {
		msg.Header.Add(k, v)
	}
	msg.Header.Add(ContentTypeHeader, ContentTypeJSON)
	msg.Header.Add(CreatedAtHeader, r.CreatedAt.Format(time.RFC3339Nano))
	msg.Header.Add(TraceIdHeader, r.ID)
	return msg
}

// BearerToken extracts the bare token from an Authorization header value.
func BearerToken(header nats.Header) string {
	v := header.Get(AuthorizationHeader)
	if len(v) > len(BearerPrefix) && v[:len(BearerPrefix)] == BearerPrefix {
		return v[len(BearerPrefix):]
	}
	return ""
}
