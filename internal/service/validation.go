package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

var maxGSTPercent = decimal.NewFromInt(100)

// ValidateCreateOrderRequest validates an admin order creation request.
func ValidateCreateOrderRequest(req *models.CreateOrderRequest) error {
	if err := validateCustomer(&req.Customer); err != nil {
		return err
	}

	if len(req.Items) == 0 {
		return errors.NewValidationError("items", "at least one item is required")
	}

	for i := range req.Items {
		if err := validateOrderItem(&req.Items[i], i); err != nil {
			return err
		}
	}

	return validateCharges(req.GSTPercent, req.DeliveryCharge)
}

// ValidateUpdateOrderRequest validates the fields present in a partial update.
func ValidateUpdateOrderRequest(req *models.UpdateOrderRequest) error {
	if req.Customer != nil && req.Customer.Email != "" {
		if _, err := mail.ParseAddress(req.Customer.Email); err != nil {
			return errors.NewValidationError("customer.email", "invalid email address")
		}
	}

	if req.Status != nil {
		if _, ok := models.ParseOrderStatus(string(*req.Status)); !ok {
			return errors.NewValidationError("status", "invalid order status")
		}
	}

	if req.Items != nil {
		for i := range *req.Items {
			if err := validateOrderItem(&(*req.Items)[i], i); err != nil {
				return err
			}
		}
	}

	return validateCharges(req.GSTPercent, req.DeliveryCharge)
}

// ValidateCheckoutRequest validates a storefront checkout. Item quantities
// are not validated here; non-positive quantities are skipped.
func ValidateCheckoutRequest(req *models.CheckoutRequest) error {
	if strings.TrimSpace(req.CustomerID) == "" {
		return errors.NewValidationError("customer_id", "customer ID is required")
	}

	if err := validateCustomer(&req.Customer); err != nil {
		return err
	}

	return validateCharges(req.GSTPercent, req.DeliveryCharge)
}

// ValidateUpdateOrderStatusRequest validates a status update request.
func ValidateUpdateOrderStatusRequest(req *models.UpdateOrderStatusRequest) error {
	if req.Status == "" {
		return errors.NewValidationError("status", "status is required")
	}

	if _, ok := models.ParseOrderStatus(string(req.Status)); !ok {
		return errors.NewValidationError("status", "invalid order status")
	}

	return nil
}

// ValidateOrderListFilter validates a list filter.
func ValidateOrderListFilter(filter *models.OrderListFilter) error {
	if filter.Limit < 0 {
		return errors.NewValidationError("limit", "limit cannot be negative")
	}

	if filter.Offset < 0 {
		return errors.NewValidationError("offset", "offset cannot be negative")
	}

	if filter.Limit > 100 {
		// TODO(TEAM-API): Make max limit configurable
		filter.Limit = 100
	}

	if filter.StartDate != nil && filter.EndDate != nil {
		if filter.StartDate.After(*filter.EndDate) {
			return errors.NewValidationError("start_date", "start date cannot be after end date")
		}
	}

	return nil
}

// ValidateCancellationReason validates an optional cancellation reason.
func ValidateCancellationReason(reason string) error {
	if len(reason) > 500 {
		return errors.NewValidationError("reason", "cancellation reason too long (max 500 characters)")
	}

	return nil
}

// SanitizeOrderNotes sanitizes order notes to prevent XSS.
func SanitizeOrderNotes(notes string) string {
	// TODO(TEAM-SEC): Use proper HTML sanitization library
	notes = strings.ReplaceAll(notes, "<", "&lt;")
	notes = strings.ReplaceAll(notes, ">", "&gt;")
	notes = strings.ReplaceAll(notes, "\"", "&quot;")
	notes = strings.TrimSpace(notes)

	// Limit length
	if len(notes) > 1000 {
		notes = notes[:1000]
	}

	return notes
}

func validateCustomer(customer *models.Customer) error {
	if strings.TrimSpace(customer.Email) == "" {
		return errors.NewValidationError("customer.email", "customer email is required")
	}

	if _, err := mail.ParseAddress(customer.Email); err != nil {
		return errors.NewValidationError("customer.email", "invalid email address")
	}

	return nil
}

func validateOrderItem(item *models.OrderItem, index int) error {
	field := fmt.Sprintf("items[%d]", index)

	if strings.TrimSpace(item.Name) == "" {
		return errors.NewValidationError(field+".name", "item name is required")
	}

	if item.Quantity < 0 {
		return errors.NewValidationError(field+".quantity", "quantity cannot be negative")
	}

	if item.UnitPrice.IsNegative() {
		return errors.NewValidationError(field+".price", "unit price cannot be negative")
	}

	return nil
}

func validateCharges(gstPercent, deliveryCharge *decimal.Decimal) error {
	if gstPercent != nil {
		if gstPercent.IsNegative() {
			return errors.NewValidationError("gst_percent", "GST percent cannot be negative")
		}
		if gstPercent.GreaterThan(maxGSTPercent) {
			return errors.NewValidationError("gst_percent", "GST percent cannot exceed 100")
		}
	}

	if deliveryCharge != nil && deliveryCharge.IsNegative() {
		return errors.NewValidationError("delivery_charge", "delivery charge cannot be negative")
	}

	return nil
}
