package bus

const (
	// Request metadata common keys
	InitiatorMD string = "initiator"

	// NATS common headers
	StatusCodeHeader    string = "statusCode"
	ErrorMessageHeader  string = "errorMessage"
	AuthorizationHeader string = "Authorization"
	ContentTypeHeader   string = "Content-Type"
	InitiatorHeader     string = "initiator"
	CreatedAtHeader     string = "createdAt"
	TraceIdHeader       string = "traceId"

	ContentTypeJSON string = "application/json"
	BearerPrefix    string = "Bearer "

	// NATS message response status codes
	StatusOK             int = 200
	StatusInvalidRequest int = 400
	StatusUnauthorized   int = 401
	StatusForbidden      int = 403
	StatusNotFound       int = 404
	StatusCartInvalid    int = 406
	StatusConflict       int = 409
	StatusUnprocessable  int = 422
	StatusSuspended      int = 451
	StatusServerError    int = 500
)
