package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/middleware"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(h *handlers.Handlers, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog())
	router.Use(metrics.GinMiddleware())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v2 := s.router.Group("/api/v2")
	{
		orders := v2.Group("/orders")
		orders.POST("", s.handlers.CreateOrder)
		orders.GET("", s.handlers.ListOrders)
		orders.POST("/totals/preview", s.handlers.PreviewTotals)
		orders.GET("/:id", s.handlers.GetOrder)
		orders.PATCH("/:id", s.handlers.UpdateOrder)
		orders.PATCH("/:id/status", s.handlers.UpdateOrderStatus)
		orders.POST("/:id/cancel", s.handlers.CancelOrder)

		storefront := v2.Group("/storefront")
		storefront.GET("/cart", s.handlers.GetCart)
		storefront.POST("/cart/items", s.handlers.AddCartItem)
		storefront.DELETE("/cart/items/:product_id", s.handlers.RemoveCartItem)
		storefront.DELETE("/cart", s.handlers.ClearCart)
		storefront.POST("/checkout", s.handlers.Checkout)
	}
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	logging.Infof("Starting server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
