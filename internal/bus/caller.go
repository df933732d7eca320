package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Caller is the outbound half shared by every service: it builds a request
// envelope, sends it with a fixed timeout and translates the reply status
// into either a decoded payload or a typed failure. No retries; a timeout
// does not mean the remote side did nothing.
type Caller struct {
	conn    *Conn
	logger  Logger
	timeout time.Duration
}

func NewCaller(conn *Conn, logger Logger, timeout time.Duration) *Caller {
	if timeout <= 0 {
		timeout = conn.cfg.RequestTimeout
	}
	return &Caller{conn: conn, logger: logger, timeout: timeout}
}

// Reply is a successfully received response body.
type Reply struct {
	StatusCode int
	Data       []byte
}

func (r *Reply) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return &TransportError{Op: "decode reply", Err: err}
	}
	return nil
}

func (c *Caller) Call(subject string, payload any, opts ...RequestOption) (*Reply, error) {
	return c.CallTimeout(subject, payload, c.timeout, opts...)
}

func (c *Caller) CallTimeout(subject string, payload any, timeout time.Duration, opts ...RequestOption) (*Reply, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return nil, &TransportError{Op: "encode request " + subject, Err: err}
	}

	req := NewRequest(subject, data, opts...)
	msg, err := c.conn.RequestMsg(RequestToNatsMsg(req), timeout)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			c.logger.Warnf("bus: request %s: no reply within %v", subject, timeout)
			return nil, fmt.Errorf("%w: %s", ErrTimeout, subject)
		}
		return nil, &TransportError{Op: "request " + subject, Err: err}
	}

	resp := NatsMsgToResponse(msg)
	if resp.StatusCode >= StatusInvalidRequest {
		return nil, &RemoteError{Subject: subject, StatusCode: resp.StatusCode, Message: resp.ErrorMsg}
	}
	return &Reply{StatusCode: resp.StatusCode, Data: resp.Data}, nil
}

// Notify publishes a fire-and-forget event: no reply is expected or waited for.
func (c *Caller) Notify(name string, payload any, opts ...EventOption) error {
	msg, err := EventToNatsMsg(NewEvent(name, payload, opts...))
	if err != nil {
		return &TransportError{Op: "encode event " + name, Err: err}
	}
	if err := c.conn.PublishMsg(msg); err != nil {
		return &TransportError{Op: "publish " + name, Err: err}
	}
	return nil
}

func marshalPayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
