package cart_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecombus/internal/bus"
	"ecombus/internal/bus/bustest"
	"ecombus/internal/cart"
)

func TestLinePrice(t *testing.T) {
	assert.Equal(t, 20.0, cart.LinePrice(10, 0, 2))
	assert.Equal(t, 18.0, cart.LinePrice(10, 10, 2))
	assert.Equal(t, 0.0, cart.LinePrice(10, 100, 3))
}

func TestValidateCart(t *testing.T) {
	carts := cart.NewMemoryStore()
	items := cart.NewMemoryItemStore()
	svc := cart.NewService(carts, items, nil, bustest.Logger(t))

	c, err := svc.AddCart()
	require.NoError(t, err)

	t.Run("empty cart is rejected", func(t *testing.T) {
		_, err := svc.ValidateCart(c.ID)

		var rej *bus.Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, bus.StatusCartInvalid, rej.StatusCode)
	})

	t.Run("cart with items passes", func(t *testing.T) {
		_, err := items.Save(cart.Item{CartID: c.ID, ProductID: 1, Quantity: 1, Price: 5})
		require.NoError(t, err)

		got, err := svc.ValidateCart(c.ID)
		require.NoError(t, err)
		assert.Len(t, got.ItemIDs, 1)
	})

	t.Run("unknown cart is not found", func(t *testing.T) {
		_, err := svc.ValidateCart(99)

		var rej *bus.Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, bus.StatusNotFound, rej.StatusCode)
	})
}

func TestRefreshCartState(t *testing.T) {
	carts := cart.NewMemoryStore()
	items := cart.NewMemoryItemStore()
	svc := cart.NewService(carts, items, nil, bustest.Logger(t))

	c, err := svc.AddCart()
	require.NoError(t, err)
	_, err = items.Save(cart.Item{CartID: c.ID, ProductID: 1, Quantity: 2, Price: 20})
	require.NoError(t, err)
	_, err = items.Save(cart.Item{CartID: c.ID, ProductID: 2, Quantity: 1, Price: 7.5})
	require.NoError(t, err)

	require.NoError(t, svc.RefreshCartState(c.ID))

	got, err := svc.GetCart(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 27.5, got.Price)

	require.NoError(t, svc.RemoveAllByCartID(c.ID))

	got, err = svc.GetCart(c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Price)
	assert.Empty(t, got.ItemIDs)
}

// stubWorld fakes the customer and catalog replies the cart sender depends on.
type stubWorld struct {
	cartID    int
	unitStock int
	price     float64
	discount  float64
}

func (w *stubWorld) register(t *testing.T, conn *bus.Conn) {
	t.Helper()
	r := bus.NewRouter(conn, bus.RouterConfig{Name: "stub"}, bustest.Logger(t), nil)
	require.NoError(t, r.Handle("customer.getCurrent", func(d *bus.Delivery) (any, error) {
		return map[string]int{"customerId": 1, "cartId": w.cartID}, nil
	}))
	require.NoError(t, r.Handle("product.get.*", func(d *bus.Delivery) (any, error) {
		return map[string]any{"product": map[string]any{
			"productId":    d.ID,
			"productName":  "keyboard",
			"productPrice": w.price,
			"unitStock":    w.unitStock,
			"discount":     w.discount,
		}}, nil
	}))
	bustest.StartRouter(t, r)
}

func TestAddItem(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	caller := bus.NewCaller(conn, bustest.Logger(t), time.Second)

	carts := cart.NewMemoryStore()
	items := cart.NewMemoryItemStore()
	svc := cart.NewService(carts, items, cart.NewSender(caller), bustest.Logger(t))

	c, err := svc.AddCart()
	require.NoError(t, err)
	world := &stubWorld{cartID: c.ID, unitStock: 2, price: 10, discount: 10}
	world.register(t, conn)

	item, err := svc.AddItem(5, "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, 9.0, item.Price)

	// Same product again merges into the existing line.
	item, err = svc.AddItem(5, "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 18.0, item.Price)
	assert.Len(t, svc.ListItems(c.ID), 1)

	got, err := svc.GetCart(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 18.0, got.Price)

	// A third unit would exceed stock.
	_, err = svc.AddItem(5, "tok")
	var rej *bus.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, bus.StatusConflict, rej.StatusCode)
}

func TestRemoveItemOwnership(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	caller := bus.NewCaller(conn, bustest.Logger(t), time.Second)

	carts := cart.NewMemoryStore()
	items := cart.NewMemoryItemStore()
	svc := cart.NewService(carts, items, cart.NewSender(caller), bustest.Logger(t))

	mine, err := svc.AddCart()
	require.NoError(t, err)
	other, err := svc.AddCart()
	require.NoError(t, err)

	world := &stubWorld{cartID: mine.ID, unitStock: 5, price: 10}
	world.register(t, conn)

	foreign, err := items.Save(cart.Item{CartID: other.ID, ProductID: 9, Quantity: 1, Price: 3})
	require.NoError(t, err)

	err = svc.RemoveItem(foreign.ID, "tok")

	var rej *bus.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, bus.StatusForbidden, rej.StatusCode)

	item, err := svc.AddItem(9, "tok")
	require.NoError(t, err)
	require.NoError(t, svc.RemoveItem(item.ID, "tok"))
	assert.Empty(t, svc.ListItems(mine.ID))
}

func TestUpdateAllByProductID(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	caller := bus.NewCaller(conn, bustest.Logger(t), time.Second)

	carts := cart.NewMemoryStore()
	items := cart.NewMemoryItemStore()
	svc := cart.NewService(carts, items, cart.NewSender(caller), bustest.Logger(t))

	c, err := svc.AddCart()
	require.NoError(t, err)
	world := &stubWorld{cartID: c.ID, unitStock: 10, price: 10}
	world.register(t, conn)

	item, err := svc.AddItem(3, "tok")
	require.NoError(t, err)
	assert.Equal(t, 10.0, item.Price)

	// Catalog price change propagates into the cart line.
	world.price = 20
	require.NoError(t, svc.UpdateAllByProductID(3, "tok"))

	got, err := svc.GetCart(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Price)
}
