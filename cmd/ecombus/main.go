package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ecombus/internal/bus"
	"ecombus/internal/cart"
	"ecombus/internal/catalog"
	"ecombus/internal/config"
	"ecombus/internal/customer"
	"ecombus/internal/identity"
	"ecombus/internal/order"
)

func main() {
	cfg := config.Load()

	var zl *zap.Logger
	var err error
	if cfg.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	if err := run(cfg, logger); err != nil {
		logger.Errorf("ecombus: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	connCfg := bus.DefaultConnConfig()
	connCfg.NatsURL = cfg.NatsURL
	connCfg.RequestTimeout = cfg.RequestTimeout

	conn, err := bus.Connect(connCfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	caller := bus.NewCaller(conn, logger, cfg.RequestTimeout)

	tokens := identity.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	identitySvc := identity.NewService(identity.NewMemoryStore(), tokens, logger)
	catalogSvc := catalog.NewService(catalog.NewMemoryStore(), logger)
	cartSvc := cart.NewService(cart.NewMemoryStore(), cart.NewMemoryItemStore(), cart.NewSender(caller), logger)
	customerSvc := customer.NewService(customer.NewMemoryStore(), customer.NewMemoryAddressStore(), customer.NewSender(caller), logger)
	orderSvc := order.NewService(order.NewMemoryStore(), order.NewMemoryItemStore(), order.NewMemoryAddressStore(), order.NewSender(caller), logger)

	routers := make([]*bus.Router, 0, 5)
	newRouter := func(name string) *bus.Router {
		r := bus.NewRouter(conn, bus.RouterConfig{Name: name, Workers: cfg.Workers}, logger, identitySvc)
		routers = append(routers, r)
		return r
	}

	if err := identity.RegisterRoutes(newRouter("identity"), identitySvc); err != nil {
		return err
	}
	if err := catalog.RegisterRoutes(newRouter("catalog"), catalogSvc); err != nil {
		return err
	}
	if err := cart.RegisterRoutes(newRouter("cart"), cartSvc); err != nil {
		return err
	}
	if err := customer.RegisterRoutes(newRouter("customer"), customerSvc); err != nil {
		return err
	}
	if err := order.RegisterRoutes(newRouter("order"), orderSvc); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range routers {
		r := r
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	logger.Infof("ecombus: all services listening on %s", cfg.NatsURL)
	return g.Wait()
}
