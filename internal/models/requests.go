package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
)

// CreateOrderRequest is an admin-entered order. Items may include
// synthetic charge lines; they are folded into the totals and not stored.
type CreateOrderRequest struct {
	Customer        Customer
	PaymentMethod   PaymentMethod
	ShippingAddress Address
	Items           []OrderItem
	GSTPercent      *decimal.Decimal
	DeliveryCharge  *decimal.Decimal
	// ClientTotal is accepted for compatibility and never used for totals.
	ClientTotal *decimal.Decimal
	Notes       string
}

func (r *CreateOrderRequest) Charges() pricing.ChargeInputs {
	return pricing.ChargeInputs{
		GSTPercent:     r.GSTPercent,
		DeliveryCharge: r.DeliveryCharge,
		ClientTotal:    r.ClientTotal,
	}
}

// UpdateOrderRequest is a partial update; nil fields are left unchanged.
type UpdateOrderRequest struct {
	Customer        *Customer
	Status          *OrderStatus
	PaymentMethod   *PaymentMethod
	ShippingAddress *Address
	Items           *[]OrderItem
	GSTPercent      *decimal.Decimal
	DeliveryCharge  *decimal.Decimal
	ClientTotal     *decimal.Decimal
	Notes           *string
}

func (r *UpdateOrderRequest) Charges() pricing.ChargeInputs {
	return pricing.ChargeInputs{
		GSTPercent:     r.GSTPercent,
		DeliveryCharge: r.DeliveryCharge,
		ClientTotal:    r.ClientTotal,
	}
}

func (r *UpdateOrderRequest) ItemsPresent() bool {
	return r.Items != nil
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus
	Notes  string
}

type CheckoutItem struct {
	ProductID string
	Quantity  int
}

// CheckoutRequest is a storefront checkout. With no Items the customer's
// cart is checked out.
type CheckoutRequest struct {
	CustomerID      string
	Customer        Customer
	PaymentMethod   PaymentMethod
	ShippingAddress Address
	Items           []CheckoutItem
	GSTPercent      *decimal.Decimal
	DeliveryCharge  *decimal.Decimal
	ClientTotal     *decimal.Decimal
	Notes           string
}

func (r *CheckoutRequest) Charges() pricing.ChargeInputs {
	return pricing.ChargeInputs{
		GSTPercent:     r.GSTPercent,
		DeliveryCharge: r.DeliveryCharge,
		ClientTotal:    r.ClientTotal,
	}
}

type OrderListFilter struct {
	Status        *OrderStatus
	CustomerEmail string
	StartDate     *time.Time
	EndDate       *time.Time
	Limit         int
	Offset        int
}
