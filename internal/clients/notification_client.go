package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

var statusSubjects = map[models.OrderStatus]string{
	models.OrderStatusPending:    "We received your order",
	models.OrderStatusAccepted:   "Your order has been accepted",
	models.OrderStatusDispatched: "Your order is on the way",
	models.OrderStatusDelivered:  "Your order has been delivered",
	models.OrderStatusCompleted:  "Your order is complete",
	models.OrderStatusCancelled:  "Your order was cancelled",
	models.OrderStatusRejected:   "Your order was rejected",
}

// StatusSubject returns the email subject for an order in status.
func StatusSubject(status models.OrderStatus) string {
	if subject, ok := statusSubjects[status]; ok {
		return subject
	}
	return "Your order status was updated"
}

// EmailLine is one row of the order summary in a status email.
type EmailLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Amount   string `json:"amount"`
}

// SendEmailRequest is the notification service's email payload.
type SendEmailRequest struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
	Lines    []EmailLine       `json:"lines,omitempty"`
}

// HTTPNotificationClient sends order emails through the notification service.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.LoggerV2
}

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logging.LoggerV2) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// SendOrderStatusEmail emails the customer the order's current status and
// totals. Orders without a customer email are skipped.
func (c *HTTPNotificationClient) SendOrderStatusEmail(ctx context.Context, order *models.Order) error {
	if order.Customer.Email == "" {
		c.logger.Debug("Skipping status email without recipient", logging.Fields{"order_id": order.ID})
		return nil
	}

	return c.SendEmail(ctx, BuildStatusEmail(order))
}

// BuildStatusEmail renders the email payload for order.
func BuildStatusEmail(order *models.Order) *SendEmailRequest {
	lines := make([]EmailLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, EmailLine{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.UnitPrice.StringFixed(2),
			Amount:   item.LineTotal().StringFixed(2),
		})
	}

	return &SendEmailRequest{
		To:       order.Customer.Email,
		Subject:  StatusSubject(order.Status),
		Template: "order_status",
		Data: map[string]string{
			"order_id":        order.ID,
			"customer_name":   order.Customer.Name,
			"status":          string(order.Status),
			"payment_method":  string(order.PaymentMethod),
			"subtotal":        order.Subtotal.StringFixed(2),
			"gst_percent":     order.GSTPercent.StringFixed(2),
			"gst_amount":      order.GSTAmount.StringFixed(2),
			"delivery_charge": order.DeliveryCharge.StringFixed(2),
			"total_amount":    order.Total.StringFixed(2),
		},
		Lines: lines,
	}
}

// SendEmail sends an email notification.
func (c *HTTPNotificationClient) SendEmail(ctx context.Context, req *SendEmailRequest) error {
	c.logger.Debug("Sending email", logging.Fields{
		"to":       req.To,
		"template": req.Template,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v2/notifications/email", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	c.setHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Failed to send email", logging.Fields{
			"to":    req.To,
			"error": err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	c.logger.Info("Email sent", logging.Fields{"to": req.To, "subject": req.Subject})
	return nil
}

func (c *HTTPNotificationClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}
}
