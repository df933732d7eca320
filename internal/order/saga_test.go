package order_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecombus/internal/bus"
	"ecombus/internal/bus/bustest"
	"ecombus/internal/cart"
	"ecombus/internal/catalog"
	"ecombus/internal/customer"
	"ecombus/internal/identity"
	"ecombus/internal/order"
)

// sagaWorld runs every service on one embedded broker, the way the real
// deployment runs them on one NATS cluster.
type sagaWorld struct {
	caller     *bus.Caller
	token      string
	cartID     int
	productID  int
	products   catalog.Store
	cartSvc    *cart.Service
	cartStore  cart.Store
	orderSvc   *order.Service
	orders     order.Store
	orderItems order.ItemStore
	addresses  order.AddressStore
}

func newSagaWorld(t *testing.T, unitStock int) *sagaWorld {
	t.Helper()
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	logger := bustest.Logger(t)
	caller := bus.NewCaller(conn, logger, time.Second)

	tokens := identity.NewTokenService("test-secret", time.Minute)
	identitySvc := identity.NewService(identity.NewMemoryStore(), tokens, logger)
	identityRouter := bus.NewRouter(conn, bus.RouterConfig{Name: "identity"}, logger, identitySvc)
	require.NoError(t, identity.RegisterRoutes(identityRouter, identitySvc))
	bustest.StartRouter(t, identityRouter)

	products := catalog.NewMemoryStore()
	catalogSvc := catalog.NewService(products, logger)
	catalogRouter := bus.NewRouter(conn, bus.RouterConfig{Name: "catalog"}, logger, identitySvc)
	require.NoError(t, catalog.RegisterRoutes(catalogRouter, catalogSvc))
	bustest.StartRouter(t, catalogRouter)

	cartStore := cart.NewMemoryStore()
	cartSvc := cart.NewService(cartStore, cart.NewMemoryItemStore(), cart.NewSender(caller), logger)
	cartRouter := bus.NewRouter(conn, bus.RouterConfig{Name: "cart"}, logger, identitySvc)
	require.NoError(t, cart.RegisterRoutes(cartRouter, cartSvc))
	bustest.StartRouter(t, cartRouter)

	customerSvc := customer.NewService(customer.NewMemoryStore(), customer.NewMemoryAddressStore(), customer.NewSender(caller), logger)
	customerRouter := bus.NewRouter(conn, bus.RouterConfig{Name: "customer"}, logger, identitySvc)
	require.NoError(t, customer.RegisterRoutes(customerRouter, customerSvc))
	bustest.StartRouter(t, customerRouter)

	orders := order.NewMemoryStore()
	orderItems := order.NewMemoryItemStore()
	addresses := order.NewMemoryAddressStore()
	orderSvc := order.NewService(orders, orderItems, addresses, order.NewSender(caller), logger)
	orderRouter := bus.NewRouter(conn, bus.RouterConfig{Name: "order"}, logger, identitySvc)
	require.NoError(t, order.RegisterRoutes(orderRouter, orderSvc))
	bustest.StartRouter(t, orderRouter)

	// Seed one registered customer with a stocked product in the cart.
	c, err := customerSvc.Register(customer.RegistrationForm{
		User: customer.UserPayload{
			FirstName: "Ana",
			LastName:  "Petrova",
			Email:     "ana@example.com",
			Password:  "pass123",
		},
		ShippingAddress: customer.ShippingAddress{
			Address:  "12 Vitosha Blvd",
			City:     "Sofia",
			Country:  "Bulgaria",
			Postcode: "1000",
		},
	})
	require.NoError(t, err)

	token, err := identitySvc.Login("ana@example.com", "pass123")
	require.NoError(t, err)

	product, err := catalogSvc.AddProduct(catalog.Product{
		Name:      "mechanical keyboard",
		Price:     100,
		UnitStock: unitStock,
		Discount:  10,
	})
	require.NoError(t, err)

	return &sagaWorld{
		caller:     caller,
		token:      token,
		cartID:     c.CartID,
		productID:  product.ID,
		products:   products,
		cartSvc:    cartSvc,
		cartStore:  cartStore,
		orderSvc:   orderSvc,
		orders:     orders,
		orderItems: orderItems,
		addresses:  addresses,
	}
}

func (w *sagaWorld) addToCart(t *testing.T, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		_, err := w.cartSvc.AddItem(w.productID, w.token)
		require.NoError(t, err)
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	w := newSagaWorld(t, 5)
	w.addToCart(t, 2)

	placed, err := w.orderSvc.PlaceOrder(w.token)
	require.NoError(t, err)

	// Two units at 100 with a 10 percent discount.
	assert.Equal(t, 180.0, placed.Price)
	assert.Equal(t, w.cartID, placed.CartID)
	require.Len(t, placed.ItemIDs, 1)
	assert.False(t, placed.CreatedAt.IsZero())

	items := w.orderItems.FindAllByOrderID(placed.ID)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 180.0, items[0].Price)
	assert.Equal(t, "mechanical keyboard", items[0].ProductName)

	// Stock was decremented through the catalog.
	product, err := w.products.FindByID(w.productID)
	require.NoError(t, err)
	assert.Equal(t, 3, product.UnitStock)

	// The address was copied and tied to the order.
	addr, err := w.addresses.FindByID(placed.AddressID)
	require.NoError(t, err)
	assert.Equal(t, "Sofia", addr.City)
	assert.Equal(t, placed.ID, addr.OrderID)

	// The cart was emptied and repriced.
	assert.Empty(t, w.cartSvc.ListItems(w.cartID))
	storedCart, err := w.cartStore.FindByID(w.cartID)
	require.NoError(t, err)
	assert.Zero(t, storedCart.Price)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	w := newSagaWorld(t, 5)

	_, err := w.orderSvc.PlaceOrder(w.token)

	assert.ErrorIs(t, err, order.ErrCartEmpty)
	assert.Empty(t, w.orders.FindAll())
}

func TestPlaceOrderOutOfStock(t *testing.T) {
	w := newSagaWorld(t, 2)
	w.addToCart(t, 2)

	// Another shopper drains the stock between add-to-cart and checkout.
	product, err := w.products.FindByID(w.productID)
	require.NoError(t, err)
	product.UnitStock = 1
	_, err = w.products.Save(product)
	require.NoError(t, err)

	_, err = w.orderSvc.PlaceOrder(w.token)

	var oos *order.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "mechanical keyboard", oos.ProductName)

	// No order row and no stock write from the aborted saga.
	assert.Empty(t, w.orders.FindAll())
	product, err = w.products.FindByID(w.productID)
	require.NoError(t, err)
	assert.Equal(t, 1, product.UnitStock)

	// The cart is untouched and checkout succeeds once stock returns.
	require.Len(t, w.cartSvc.ListItems(w.cartID), 1)
	product.UnitStock = 2
	_, err = w.products.Save(product)
	require.NoError(t, err)
	_, err = w.orderSvc.PlaceOrder(w.token)
	assert.NoError(t, err)
}

func TestPlaceOrderAddressTimeout(t *testing.T) {
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	logger := bustest.Logger(t)
	caller := bus.NewCaller(conn, logger, time.Millisecond*200)

	cartStore := cart.NewMemoryStore()
	itemStore := cart.NewMemoryItemStore()
	cartSvc := cart.NewService(cartStore, itemStore, cart.NewSender(caller), logger)
	cartRouter := bus.NewRouter(conn, bus.RouterConfig{Name: "cart"}, logger, nil)
	require.NoError(t, cart.RegisterRoutes(cartRouter, cartSvc))
	bustest.StartRouter(t, cartRouter)

	c, err := cartSvc.AddCart()
	require.NoError(t, err)
	_, err = itemStore.Save(cart.Item{CartID: c.ID, ProductID: 1, Quantity: 1, Price: 10})
	require.NoError(t, err)

	// The customer replies; the address service never does in time.
	stub := bus.NewRouter(conn, bus.RouterConfig{Name: "stub"}, logger, nil)
	require.NoError(t, stub.Handle("customer.getCurrent", func(d *bus.Delivery) (any, error) {
		return map[string]int{"customerId": 1, "cartId": c.ID, "shippingAddressId": 7}, nil
	}))
	require.NoError(t, stub.Handle("address.getAddress.*", func(d *bus.Delivery) (any, error) {
		time.Sleep(time.Second)
		return nil, nil
	}))
	bustest.StartRouter(t, stub)

	orders := order.NewMemoryStore()
	orderSvc := order.NewService(orders, order.NewMemoryItemStore(), order.NewMemoryAddressStore(), order.NewSender(caller), logger)

	_, err = orderSvc.PlaceOrder("tok")

	assert.ErrorIs(t, err, bus.ErrTimeout)
	assert.Empty(t, orders.FindAll())
}

// Two checkouts that read the same stock both win: the unversioned
// read-modify-write over the bus loses one decrement.
func TestConcurrentCheckoutLosesStockUpdate(t *testing.T) {
	w := newSagaWorld(t, 2)
	sender := order.NewSender(w.caller)

	first, err := sender.RetrieveProduct(w.productID, w.token)
	require.NoError(t, err)
	second, err := sender.RetrieveProduct(w.productID, w.token)
	require.NoError(t, err)
	assert.Equal(t, 2, first.UnitStock)
	assert.Equal(t, 2, second.UnitStock)

	first.UnitStock--
	require.NoError(t, sender.UpdateProduct(first, w.productID, w.token))
	second.UnitStock--
	require.NoError(t, sender.UpdateProduct(second, w.productID, w.token))

	product, err := w.products.FindByID(w.productID)
	require.NoError(t, err)
	assert.Equal(t, 1, product.UnitStock)
}

func TestDeleteAllOrdersForCart(t *testing.T) {
	w := newSagaWorld(t, 5)
	w.addToCart(t, 1)

	placed, err := w.orderSvc.PlaceOrder(w.token)
	require.NoError(t, err)

	_, err = w.caller.Call(bus.OrderDeleteAllSubject(w.cartID), nil, bus.WithBearerToken(w.token))
	require.NoError(t, err)

	assert.Empty(t, w.orders.FindAll())
	assert.Empty(t, w.orderItems.FindAllByOrderID(placed.ID))
}
