package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/clients"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/events"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/repository"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/server"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/service"

	_ "github.com/lib/pq"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orders HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(a.cfg)
		},
	}
}

// stores groups the storage backends selected by configuration.
type stores struct {
	orders    repository.OrderRepository
	cache     repository.OrderCache
	carts     repository.CartStore
	catalog   repository.ProductCatalog
	readiness []handlers.ReadinessCheck
	closers   []func() error
}

func (s *stores) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

func serve(cfg *config.Config) error {
	logger := logging.NewLoggerV2("orders-service")

	logging.Infof("Starting orders-service on port %d", cfg.Server.Port)

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Error("Failed to open stores", logging.Fields{"error": err.Error()})
		return err
	}
	defer st.Close()

	calculator := pricing.NewCalculator(pricing.NewVocabulary(cfg.Pricing.GSTLineNames, cfg.Pricing.DeliveryLineNames))

	var publisher service.EventPublisher
	if cfg.Features.EnableOrderEvents {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	var notifier service.Notifier
	if cfg.Features.EnableNotifications {
		notifier = clients.NewHTTPNotificationClient(cfg.NotificationService, logger)
	}

	orderService := service.NewOrderService(st.orders, st.cache, calculator, publisher, notifier, cfg)
	checkoutService := service.NewCheckoutService(orderService, st.catalog, st.carts)
	cartService := service.NewCartService(st.carts, st.catalog, calculator)

	h := handlers.NewHandlers(orderService, checkoutService, cartService, cfg, st.readiness...)
	srv := server.New(h, cfg)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":                 cfg.Server.Port,
			"in_memory_store":      cfg.Features.UseInMemoryStore,
			"enable_order_caching": cfg.Features.EnableOrderCaching,
			"enable_order_events":  cfg.Features.EnableOrderEvents,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var consumer *events.KafkaConsumer
	if cfg.Features.EnablePaymentConsumer {
		consumer = events.NewKafkaConsumer(cfg.Kafka, orderService, logger)
		go func() {
			if err := consumer.Start(context.Background()); err != nil {
				logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		logger.Error("Server failed to start", logging.Fields{"error": err.Error()})
		return err
	}

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
		return err
	}

	logger.Info("Server exited")
	return nil
}

func openStores(cfg *config.Config, logger *logging.LoggerV2) (*stores, error) {
	if cfg.Features.UseInMemoryStore {
		logger.Warn("Using in-memory stores; data is lost on restart")
		return &stores{
			orders:  repository.NewMemoryOrderRepository(),
			carts:   repository.NewMemoryCartStore(),
			catalog: repository.NewMemoryProductCatalog(),
		}, nil
	}

	db, err := initDatabase(cfg)
	if err != nil {
		return nil, err
	}

	rdb := repository.NewRedisClient(cfg.Redis)

	st := &stores{
		orders:  repository.NewPostgresOrderRepository(db, logger),
		carts:   repository.NewRedisCartStore(rdb, cfg.Redis.CartTTL),
		catalog: repository.NewPostgresProductCatalog(db, logger),
		readiness: []handlers.ReadinessCheck{
			{Name: "postgres", Check: db.PingContext},
			{Name: "redis", Check: redisCheck(rdb)},
		},
		closers: []func() error{rdb.Close, db.Close},
	}
	if cfg.Features.EnableOrderCaching {
		st.cache = repository.NewRedisOrderCache(rdb, cfg.Redis.TTL)
	}

	return st, nil
}

func redisCheck(rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
