package bus

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
)

type ResponseOption interface {
	configureResponse(r *Response)
}

// Response is the inbound half of the envelope. Error replies carry a
// {"status", "message"} JSON body; the status code and message are mirrored
// on headers for consumers that never look at the body.
type Response struct {
	Reply      string
	StatusCode int
	Data       []byte
	ErrorMsg   string
	Metadata   map[string]string
}

func NewResponse(reply string, data []byte, opts ...ResponseOption) Response {
	r := Response{
		Reply:      reply,
		StatusCode: StatusOK,
		Data:       data,
		Metadata:   make(map[string]string),
	}
	for _, option := range opts {
		option.configureResponse(&r)
	}
	return r
}

func (r Response) Err() error {
	if r.ErrorMsg != "" {
		return fmt.Errorf("statusCode: %d, errorMsg: %s", r.StatusCode, r.ErrorMsg)
	}
	return nil
}

// statusPayload is the conventional reply body. A missing status means 200.
type statusPayload struct {
	Status  int    `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func errorBody(statusCode int, message string) []byte {
	data, err := json.Marshal(statusPayload{Status: statusCode, Message: message})
	if err != nil {
		return []byte(`{"status":500,"message":"unrecoverable serialization error"}`)
	}
	return data
}

func ResponseToNatsMsg(r Response) *nats.Msg {
	msg := nats.NewMsg(r.Reply)
	msg.Data = r.Data
	if r.ErrorMsg != "" && len(r.Data) == 0 {
		msg.Data = errorBody(r.StatusCode, r.ErrorMsg)
	}

	for k, v := range r.Metadata {
		msg.Header.Add(k, v)
	}
	msg.Header.Add(ContentTypeHeader, ContentTypeJSON)
	msg.Header.Add(StatusCodeHeader, strconv.Itoa(r.StatusCode))
	msg.Header.Add(ErrorMessageHeader, r.ErrorMsg)
	return msg
}

func NatsMsgToResponse(msg *nats.Msg) Response {
	r := Response{
		StatusCode: StatusOK,
		Data:       msg.Data,
		Metadata:   make(map[string]string),
	}

	for k := range msg.Header {
		switch k {
		case StatusCodeHeader:
			r.StatusCode, _ = strconv.Atoi(msg.Header.Get(k))
		case ErrorMessageHeader:
			r.ErrorMsg = msg.Header.Get(k)
		default:
			r.Metadata[k] = msg.Header.Get(k)
		}
	}

	// The body status wins over headers when both are present.
	var body statusPayload
	if err := json.Unmarshal(msg.Data, &body); err == nil && body.Status != 0 {
		r.StatusCode = body.Status
		if r.ErrorMsg == "" {
			if body.Message != "" {
				r.ErrorMsg = body.Message
			} else if body.Error != "" {
				r.ErrorMsg = body.Error
			}
		}
	}

	return r
}

// * Response options **************************************************

type responseError struct {
	StatusCode int
	ErrorMsg   string
}

func (o responseError) configureResponse(r *Response) {
	r.StatusCode = o.StatusCode
	r.ErrorMsg = o.ErrorMsg
}

// WithResponseError adds status code and error message to the response
func WithResponseError(statusCode int, errorMsg string) ResponseOption {
	return responseError{
		StatusCode: statusCode,
		ErrorMsg:   errorMsg,
	}
}
