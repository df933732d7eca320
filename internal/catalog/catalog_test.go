package catalog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecombus/internal/bus"
	"ecombus/internal/bus/bustest"
	"ecombus/internal/catalog"
)

func startCatalog(t *testing.T) (*bus.Caller, catalog.Store) {
	t.Helper()
	srv := bustest.RunServer(t)
	conn := bustest.Connect(t, srv)
	logger := bustest.Logger(t)

	store := catalog.NewMemoryStore()
	r := bus.NewRouter(conn, bus.RouterConfig{Name: "catalog"}, logger, nil)
	require.NoError(t, catalog.RegisterRoutes(r, catalog.NewService(store, logger)))
	bustest.StartRouter(t, r)

	return bus.NewCaller(conn, logger, time.Second), store
}

func TestProductGetOverBus(t *testing.T) {
	caller, store := startCatalog(t)
	p, err := store.Save(catalog.Product{Name: "ssd", Price: 80, UnitStock: 4})
	require.NoError(t, err)

	reply, err := caller.Call(bus.ProductGetSubject(p.ID), nil)
	require.NoError(t, err)

	var wrapper struct {
		Product catalog.Product `json:"product"`
	}
	require.NoError(t, reply.Decode(&wrapper))
	assert.Equal(t, "ssd", wrapper.Product.Name)
	assert.Equal(t, 4, wrapper.Product.UnitStock)
}

func TestProductGetUnknown(t *testing.T) {
	caller, _ := startCatalog(t)

	_, err := caller.Call(bus.ProductGetSubject(99), nil)

	var remote *bus.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, bus.StatusUnprocessable, remote.StatusCode)
}

func TestProductUpdateReplacesWholesale(t *testing.T) {
	caller, store := startCatalog(t)
	p, err := store.Save(catalog.Product{Name: "ssd", Description: "nvme drive", Price: 80, UnitStock: 4})
	require.NoError(t, err)

	payload := map[string]any{"product": map[string]any{
		"productName":  "ssd",
		"productPrice": 80,
		"unitStock":    3,
	}}
	_, err = caller.Call(bus.ProductUpdateSubject(p.ID), payload)
	require.NoError(t, err)

	got, err := store.FindByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UnitStock)
	// Fields the update payload omits are gone: the update is a replace.
	assert.Empty(t, got.Description)
}

func TestProductUpdateMissingPayload(t *testing.T) {
	caller, store := startCatalog(t)
	p, err := store.Save(catalog.Product{Name: "ssd", Price: 80})
	require.NoError(t, err)

	_, err = caller.Call(bus.ProductUpdateSubject(p.ID), map[string]string{"wrong": "shape"})

	var remote *bus.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, bus.StatusInvalidRequest, remote.StatusCode)
}
