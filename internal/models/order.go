package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusDispatched,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRejected,
}

// ParseOrderStatus accepts a status in any case.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodPrepaid PaymentMethod = "prepaid"
)

// NormalizePaymentMethod maps anything unrecognised to cash on delivery.
func NormalizePaymentMethod(s string) PaymentMethod {
	if PaymentMethod(strings.ToLower(strings.TrimSpace(s))) == PaymentMethodPrepaid {
		return PaymentMethodPrepaid
	}
	return PaymentMethodCOD
}

const (
	OrderSourceAdmin      = "admin"
	OrderSourceStorefront = "storefront"
)

type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type OrderItem struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is the amount the item contributes to the subtotal.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Line().Amount()
}

func (i OrderItem) Line() pricing.Line {
	return pricing.Line{Name: i.Name, UnitPrice: i.UnitPrice, Quantity: i.Quantity}
}

type Order struct {
	ID              string          `json:"id"`
	Customer        Customer        `json:"customer"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ShippingAddress Address         `json:"shipping_address"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	GSTPercent      decimal.Decimal `json:"gst_percent"`
	GSTAmount       decimal.Decimal `json:"gst_amount"`
	DeliveryCharge  decimal.Decimal `json:"delivery_charge"`
	Total           decimal.Decimal `json:"total_amount"`
	Notes           string          `json:"notes,omitempty"`
	Source          string          `json:"source"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ApplyTotals stores t on the order at currency precision.
func (o *Order) ApplyTotals(t pricing.Totals) {
	t = t.Rounded()
	o.Subtotal = t.Subtotal
	o.GSTPercent = t.GSTPercent
	o.GSTAmount = t.GSTAmount
	o.DeliveryCharge = t.DeliveryCharge
	o.Total = t.Total
}

// StoredCharges returns the persisted charge values used as update fallbacks.
func (o *Order) StoredCharges() *pricing.ChargeInputs {
	return &pricing.ChargeInputs{
		GSTPercent:     pricing.Ptr(o.GSTPercent),
		DeliveryCharge: pricing.Ptr(o.DeliveryCharge),
	}
}

func (o *Order) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, item.Line())
	}
	return lines
}

func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusAccepted
}

func (o *Order) IsFinal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}
