package bus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type ConnConfig struct {
	NatsURL          string
	ConnectTimeout   time.Duration
	ReconnectWait    time.Duration
	TotalWait        time.Duration
	ReconnectBufSize int
	RequestTimeout   time.Duration
}

func DefaultConnConfig() *ConnConfig {
	return &ConnConfig{
		NatsURL:          nats.DefaultURL,
		ConnectTimeout:   time.Second * 10,
		ReconnectWait:    time.Second,
		TotalWait:        time.Second * 300,
		ReconnectBufSize: 100 * 1024 * 1024,
		RequestTimeout:   time.Second * 5,
	}
}

// Conn owns a single connection to the broker. All services in a process
// share one Conn; reconnection is handled by the client and surfaces to
// callers only as transient transport errors on in-flight requests.
type Conn struct {
	cfg    *ConnConfig
	logger Logger
	nc     *nats.Conn
}

func Connect(cfg *ConnConfig, logger Logger) (*Conn, error) {
	nc, err := nats.Connect(
		cfg.NatsURL,
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(int(cfg.TotalWait/cfg.ReconnectWait)),
		nats.ReconnectBufSize(cfg.ReconnectBufSize),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, natsErr error) {
			if sub != nil {
				logger.Errorf("bus: subject = %s: %v", sub.Subject, natsErr)
				return
			}
			logger.Errorf("bus: %v", natsErr)
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			logger.Errorf("bus: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("bus: reconnected: %s ....", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: create client: %w", err)
	}
	return &Conn{cfg: cfg, logger: logger, nc: nc}, nil
}

func (c *Conn) RequestMsg(msg *nats.Msg, timeout time.Duration) (*nats.Msg, error) {
	return c.nc.RequestMsg(msg, timeout)
}

func (c *Conn) PublishMsg(msg *nats.Msg) error {
	return c.nc.PublishMsg(msg)
}

func (c *Conn) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// ChanSubscribe delivers raw messages for the subject into ch. The router
// fans a set of these out to pattern-matched handlers.
func (c *Conn) ChanSubscribe(subject string, ch chan *nats.Msg) (*nats.Subscription, error) {
	return c.nc.ChanSubscribe(subject, ch)
}

// ChanQueueSubscribe is ChanSubscribe within a queue group: the broker picks
// one member per message, so replicas of a service split the load.
func (c *Conn) ChanQueueSubscribe(subject, queue string, ch chan *nats.Msg) (*nats.Subscription, error) {
	return c.nc.ChanQueueSubscribe(subject, queue, ch)
}

func (c *Conn) Flush() error {
	return c.nc.Flush()
}

func (c *Conn) Close() {
	c.nc.Drain()
}
