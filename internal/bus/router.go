package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

// Principal is the authenticated identity a listener resolves from a bearer
// token. It lives only for the duration of a single delivery and is passed
// explicitly, never stored in a process-wide context.
type Principal struct {
	UserID int
	Roles  []string
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authenticator validates a bearer token into a principal.
type Authenticator interface {
	Authenticate(token string) (*Principal, error)
}

// Delivery is one inbound request as seen by a handler.
type Delivery struct {
	Subject   string
	ID        int // parsed trailing wildcard segment, 0 when the route has none
	Data      []byte
	Header    nats.Header
	Token     string
	Principal *Principal
	TraceID   string
}

func (d *Delivery) Decode(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	return json.Unmarshal(d.Data, v)
}

// HandlerFunc produces either a reply payload or an error. A *Rejection sets
// the reply status; any other error becomes a 500 reply.
type HandlerFunc func(d *Delivery) (any, error)

type RouteOption interface {
	configureRoute(rt *route)
}

type requireAuth struct{}

func (requireAuth) configureRoute(rt *route) { rt.auth = true }

// RequireAuth makes the router validate the bearer token and attach the
// principal before the handler runs.
func RequireAuth() RouteOption { return requireAuth{} }

type route struct {
	pattern  string
	prefix   string
	wildcard bool
	auth     bool
	handler  HandlerFunc
}

type RouterConfig struct {
	// Name identifies the service in logs.
	Name    string
	Workers int
	BufSize int
}

// Router is the per-service dispatch table: subject patterns (optionally
// with a trailing single-segment wildcard bound to an integer id) mapped to
// handlers. Deliveries run on a bounded worker pool; every request carrying
// a reply-to gets exactly one reply, success or structured error.
type Router struct {
	conn      *Conn
	cfg       RouterConfig
	logger    Logger
	auth      Authenticator
	routes    []*route
	msgs      chan *nats.Msg
	subs      []*nats.Subscription
	listening bool
}

func NewRouter(conn *Conn, cfg RouterConfig, logger Logger, auth Authenticator) *Router {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.BufSize <= 0 {
		cfg.BufSize = 64
	}
	return &Router{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		auth:   auth,
		msgs:   make(chan *nats.Msg, cfg.BufSize),
	}
}

// Handle registers a subject pattern. A pattern ending in ".*" matches
// exactly one extra segment, which must parse as an integer id.
func (r *Router) Handle(pattern string, h HandlerFunc, opts ...RouteOption) error {
	if pattern == "" || h == nil {
		return fmt.Errorf("bus: invalid route %q", pattern)
	}
	rt := &route{pattern: pattern, handler: h}
	if strings.HasSuffix(pattern, ".*") {
		rt.wildcard = true
		rt.prefix = strings.TrimSuffix(pattern, "*")
	} else if strings.Contains(pattern, "*") {
		return fmt.Errorf("bus: only a trailing wildcard segment is supported: %q", pattern)
	}
	for _, opt := range opts {
		opt.configureRoute(rt)
	}
	r.routes = append(r.routes, rt)
	return nil
}

// Listen subscribes all registered patterns. It returns once the broker has
// acknowledged the subscriptions, so requests sent afterwards will be seen.
func (r *Router) Listen() error {
	if r.listening {
		return nil
	}
	for _, rt := range r.routes {
		// Queue group per service: replicas running the same router name
		// split deliveries instead of each handling every request.
		sub, err := r.conn.ChanQueueSubscribe(rt.pattern, r.cfg.Name, r.msgs)
		if err != nil {
			return &TransportError{Op: "subscribe " + rt.pattern, Err: err}
		}
		r.subs = append(r.subs, sub)
	}
	if err := r.conn.Flush(); err != nil {
		return &TransportError{Op: "flush subscriptions", Err: err}
	}
	r.listening = true
	r.logger.Infof("%s: listening on %d subjects", r.cfg.Name, len(r.routes))
	return nil
}

// Run processes deliveries on the worker pool until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	if err := r.Listen(); err != nil {
		return err
	}

	g := errgroup.Group{}
	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-r.msgs:
					if !ok {
						return nil
					}
					r.dispatch(msg)
				}
			}
		})
	}

	<-ctx.Done()
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	return g.Wait()
}

// match returns the most specific route for a subject: an exact pattern wins
// over a wildcard, and among wildcards the longest prefix wins.
func (r *Router) match(subject string) *route {
	var best *route
	for _, rt := range r.routes {
		if !rt.wildcard {
			if rt.pattern == subject {
				return rt
			}
			continue
		}
		rest := strings.TrimPrefix(subject, rt.prefix)
		if rest == subject || rest == "" || strings.Contains(rest, ".") {
			continue
		}
		if best == nil || len(rt.prefix) > len(best.prefix) {
			best = rt
		}
	}
	return best
}

func (r *Router) dispatch(msg *nats.Msg) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("%s: recovered handling %s: %v", r.cfg.Name, msg.Subject, rec)
			r.respondError(msg, StatusServerError, "internal server error")
		}
	}()

	rt := r.match(msg.Subject)
	if rt == nil {
		r.logger.Warnf("%s: no route for subject %s", r.cfg.Name, msg.Subject)
		return
	}
	d := Delivery{
		Subject: msg.Subject,
		Data:    msg.Data,
		Header:  msg.Header,
		TraceID: msg.Header.Get(TraceIdHeader),
	}

	if rt.wildcard {
		id, err := strconv.Atoi(msg.Subject[len(rt.prefix):])
		if err != nil {
			r.logger.Warnf("%s: invalid id in subject %s", r.cfg.Name, msg.Subject)
			r.respondError(msg, StatusInvalidRequest, "invalid id in subject: "+msg.Subject)
			return
		}
		d.ID = id
	}

	d.Token = r.extractToken(msg)

	if rt.auth {
		if r.auth == nil {
			r.respondError(msg, StatusServerError, "no authenticator configured")
			return
		}
		principal, err := r.auth.Authenticate(d.Token)
		if err != nil {
			var rej *Rejection
			if errors.As(err, &rej) {
				r.respondError(msg, rej.StatusCode, rej.Message)
				return
			}
			r.respondError(msg, StatusUnauthorized, "authentication failed: "+err.Error())
			return
		}
		d.Principal = principal
	}

	result, err := rt.handler(&d)
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			r.respondError(msg, rej.StatusCode, rej.Message)
			return
		}
		r.logger.Errorf("%s: handle %s: %v", r.cfg.Name, msg.Subject, err)
		r.respondError(msg, StatusServerError, err.Error())
		return
	}

	r.respond(msg, result)
}

// extractToken reads the bearer token from the Authorization header, falling
// back to a "token" field in the payload for callers predating the header
// convention.
func (r *Router) extractToken(msg *nats.Msg) string {
	if token := BearerToken(msg.Header); token != "" {
		return token
	}
	if len(msg.Data) == 0 {
		return ""
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		return ""
	}
	return body.Token
}

func (r *Router) respond(msg *nats.Msg, result any) {
	if msg.Reply == "" {
		return
	}

	var data []byte
	switch v := result.(type) {
	case nil:
		data = []byte(`{"status":200}`)
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			r.logger.Errorf("%s: encode reply for %s: %v", r.cfg.Name, msg.Subject, err)
			r.respondError(msg, StatusServerError, "serialization error")
			return
		}
	}

	resp := ResponseToNatsMsg(NewResponse(msg.Reply, data))
	if err := r.conn.PublishMsg(resp); err != nil {
		r.logger.Errorf("%s: publish reply to %s: %v", r.cfg.Name, msg.Reply, err)
	}
}

func (r *Router) respondError(msg *nats.Msg, statusCode int, message string) {
	if msg.Reply == "" {
		return
	}
	resp := ResponseToNatsMsg(NewResponse(msg.Reply, nil, WithResponseError(statusCode, message)))
	if err := r.conn.PublishMsg(resp); err != nil {
		r.logger.Errorf("%s: publish error reply to %s: %v", r.cfg.Name, msg.Reply, err)
	}
}
