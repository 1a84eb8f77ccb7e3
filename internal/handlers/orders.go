package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

// CreateOrder handles POST /api/v2/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req OrderPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req.toCreateRequest())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /api/v2/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	orderID := c.Param("id")

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrder handles PATCH /api/v2/orders/:id
func (h *Handlers) UpdateOrder(c *gin.Context) {
	orderID := c.Param("id")

	var req OrderPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), orderID, req.toUpdateRequest())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/v2/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, &models.UpdateOrderStatusRequest{
		Status: models.OrderStatus(req.Status),
		Notes:  req.Notes,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder handles POST /api/v2/orders/:id/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	orderID := c.Param("id")

	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/v2/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	filter := &models.OrderListFilter{
		CustomerEmail: strings.TrimSpace(c.Query("customer_email")),
	}

	if status := c.Query("status"); status != "" {
		parsed, ok := models.ParseOrderStatus(status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &parsed
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	if value := c.Query("start_date"); value != "" {
		start, err := parseDate(value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		filter.StartDate = &start
	}

	if value := c.Query("end_date"); value != "" {
		end, err := parseDate(value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		filter.EndDate = &end
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// PreviewTotals handles POST /api/v2/orders/totals/preview
func (h *Handlers) PreviewTotals(c *gin.Context) {
	var req PreviewPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	opts, ok := req.options()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be create, update or checkout"})
		return
	}

	totals := h.orderService.PreviewTotals(itemsToModels(req.Items), req.inputs(), opts)
	c.JSON(http.StatusOK, totals)
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
