package bus

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when no reply arrives within the request timeout.
// The remote side may still have processed the request after the deadline.
var ErrTimeout = errors.New("bus: request timed out")

// TransportError covers connection, publish and serialization failures.
// It is always distinguishable from a timeout and from a remote status.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bus: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError carries the status and message a responder put in its reply.
type RemoteError struct {
	Subject    string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bus: %s replied %d: %s", e.Subject, e.StatusCode, e.Message)
}

// Rejection is a well-formed negative outcome from domain logic, e.g. an
// empty cart or a duplicate email. Handlers return it to control the status
// code of the error reply; it is not a transport fault.
type Rejection struct {
	StatusCode int
	Message    string
}

func (e *Rejection) Error() string { return e.Message }

// Reject builds a business rejection with the given status code.
func Reject(statusCode int, format string, args ...interface{}) *Rejection {
	return &Rejection{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}
