package bus_test

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecombus/internal/bus"
	"ecombus/internal/bus/bustest"
)

func TestCallTimeout(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	caller := bus.NewCaller(conn, bustest.Logger(t), time.Second)

	r := bus.NewRouter(conn, bus.RouterConfig{Name: "catalog"}, bustest.Logger(t), nil)
	require.NoError(t, r.Handle("product.get.*", func(d *bus.Delivery) (any, error) {
		time.Sleep(time.Millisecond * 500)
		return nil, nil
	}))
	bustest.StartRouter(t, r)

	_, err := caller.CallTimeout("product.get.1", nil, time.Millisecond*100)

	require.Error(t, err)
	assert.True(t, errors.Is(err, bus.ErrTimeout))
}

func TestCallTreatsBareReplyAsSuccess(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	caller := bus.NewCaller(conn, bustest.Logger(t), time.Second)

	// A responder that skips the response envelope entirely.
	ch := make(chan *nats.Msg, 1)
	sub, err := conn.ChanSubscribe("ping", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, conn.Flush())
	go func() {
		msg := <-ch
		_ = conn.Publish(msg.Reply, []byte(`{"pong":true}`))
	}()

	reply, err := caller.Call("ping", nil)
	require.NoError(t, err)

	var body struct {
		Pong bool `json:"pong"`
	}
	require.NoError(t, reply.Decode(&body))
	assert.True(t, body.Pong)
}

func TestCallReadsStatusFromBody(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	caller := bus.NewCaller(conn, bustest.Logger(t), time.Second)

	ch := make(chan *nats.Msg, 1)
	sub, err := conn.ChanSubscribe("ping", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, conn.Flush())
	go func() {
		msg := <-ch
		_ = conn.Publish(msg.Reply, []byte(`{"status":500,"message":"boom"}`))
	}()

	_, err = caller.Call("ping", nil)

	var remote *bus.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, bus.StatusServerError, remote.StatusCode)
	assert.Equal(t, "boom", remote.Message)
}

func TestNotifyPublishesWithoutReply(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	caller := bus.NewCaller(conn, bustest.Logger(t), time.Second)

	ch := make(chan *nats.Msg, 1)
	sub, err := conn.ChanSubscribe("user.delete.3", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, conn.Flush())

	require.NoError(t, caller.Notify("user.delete.3", nil,
		bus.WithEventToken("tok"), bus.WithEventInitiator("customer-service")))

	select {
	case msg := <-ch:
		assert.Empty(t, msg.Reply)
		assert.Contains(t, msg.Header.Get(bus.AuthorizationHeader), "tok")
		assert.Equal(t, "customer-service", msg.Header.Get(bus.InitiatorHeader))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
