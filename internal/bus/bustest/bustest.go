// Package bustest runs an embedded NATS server so bus tests need no
// external broker.
package bustest

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecombus/internal/bus"
)

func RunServer(t *testing.T) *server.Server {
	t.Helper()
	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	go srv.Start()
	if !srv.ReadyForConnections(time.Second * 5) {
		t.Fatal("embedded nats server did not become ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func Logger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	l, err := zap.NewDevelopment()
	require.NoError(t, err)
	return l.Sugar()
}

func Connect(t *testing.T, srv *server.Server) *bus.Conn {
	t.Helper()
	cfg := bus.DefaultConnConfig()
	cfg.NatsURL = srv.ClientURL()
	conn, err := bus.Connect(cfg, Logger(t))
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

// StartRouter brings a router live and tears it down with the test. It only
// returns once the router's subscriptions are acknowledged.
func StartRouter(t *testing.T, r *bus.Router) {
	t.Helper()
	require.NoError(t, r.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}
