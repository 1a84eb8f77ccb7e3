package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

// customerID reads the storefront customer from the X-Customer-ID header
// set by the gateway after authentication.
func customerID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(middleware.HeaderCustomerID))
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "customer not identified"})
		return "", false
	}
	return id, true
}

// GetCart handles GET /api/v2/storefront/cart
func (h *Handlers) GetCart(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// AddCartItem handles POST /api/v2/storefront/cart/items
func (h *Handlers) AddCartItem(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req checkoutItemPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), id, models.CartItem{
		ProductID: req.ProductID,
		Quantity:  req.Quantity.Int(),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// RemoveCartItem handles DELETE /api/v2/storefront/cart/items/:product_id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), id, c.Param("product_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// ClearCart handles DELETE /api/v2/storefront/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Checkout handles POST /api/v2/storefront/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req CheckoutPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), req.toRequest(id))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
