package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/service"
)

// ReadinessCheck is a dependency probed by GET /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the orders service.
type Handlers struct {
	orderService    *service.OrderService
	checkoutService *service.CheckoutService
	cartService     *service.CartService
	readiness       []ReadinessCheck
	config          *config.Config
	logger          *logging.LoggerV2
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	orderService *service.OrderService,
	checkoutService *service.CheckoutService,
	cartService *service.CartService,
	cfg *config.Config,
	readiness ...ReadinessCheck,
) *Handlers {
	return &Handlers{
		orderService:    orderService,
		checkoutService: checkoutService,
		cartService:     cartService,
		readiness:       readiness,
		config:          cfg,
		logger:          logging.NewLoggerV2("handlers"),
	}
}

func handleError(c *gin.Context, err error) {
	if errors.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if stderrors.Is(err, errors.ErrEmptyCheckout) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items to checkout"})
		return
	}

	if stderrors.Is(err, errors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
		return
	}

	if validationErr, ok := errors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Details,
		})
		return
	}

	logging.NewLoggerV2("handlers").Error("Request failed", logging.Fields{
		"path":  c.FullPath(),
		"error": err.Error(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
