package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
)

func TestNormalizePaymentMethod(t *testing.T) {
	tests := []struct {
		input string
		want  PaymentMethod
	}{
		{"prepaid", PaymentMethodPrepaid},
		{" PREPAID ", PaymentMethodPrepaid},
		{"cod", PaymentMethodCOD},
		{"", PaymentMethodCOD},
		{"upi", PaymentMethodCOD},
	}

	for _, tt := range tests {
		if got := NormalizePaymentMethod(tt.input); got != tt.want {
			t.Errorf("NormalizePaymentMethod(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	if got, ok := ParseOrderStatus("Dispatched"); !ok || got != OrderStatusDispatched {
		t.Errorf("ParseOrderStatus(Dispatched) = %s, %v", got, ok)
	}
	if _, ok := ParseOrderStatus("shipped"); ok {
		t.Error("Expected unknown status to be rejected")
	}
}

func TestOrder_ApplyTotalsRounds(t *testing.T) {
	order := &Order{}
	order.ApplyTotals(pricing.Totals{
		Subtotal:       decimal.RequireFromString("300"),
		GSTPercent:     decimal.RequireFromString("23.333333"),
		GSTAmount:      decimal.RequireFromString("70"),
		DeliveryCharge: decimal.RequireFromString("30"),
		Total:          decimal.RequireFromString("400"),
	})

	if !order.GSTPercent.Equal(decimal.RequireFromString("23.33")) {
		t.Errorf("GSTPercent = %s, want 23.33", order.GSTPercent)
	}
	if !order.Total.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Total = %s, want 400", order.Total)
	}
}

func TestOrder_CanCancel(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusPending, true},
		{OrderStatusAccepted, true},
		{OrderStatusDispatched, false},
		{OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		order := &Order{Status: tt.status}
		if got := order.CanCancel(); got != tt.want {
			t.Errorf("CanCancel() for %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestProduct_Price(t *testing.T) {
	p := Product{SellingPrice: decimal.Zero, MRP: decimal.NewFromInt(499)}
	if !p.Price().Equal(decimal.NewFromInt(499)) {
		t.Errorf("Price() = %s, want 499", p.Price())
	}

	p.SellingPrice = decimal.NewFromInt(399)
	if !p.Price().Equal(decimal.NewFromInt(399)) {
		t.Errorf("Price() = %s, want 399", p.Price())
	}
}
