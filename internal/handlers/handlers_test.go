package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}

	if resp["service"] != "orders-service" {
		t.Errorf("Expected service 'orders-service', got %v", resp["service"])
	}
}

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		checks []ReadinessCheck
		want   int
	}{
		{"no checks", nil, http.StatusOK},
		{
			"all healthy",
			[]ReadinessCheck{{Name: "postgres", Check: func(context.Context) error { return nil }}},
			http.StatusOK,
		},
		{
			"redis down",
			[]ReadinessCheck{
				{Name: "postgres", Check: func(context.Context) error { return nil }},
				{Name: "redis", Check: func(context.Context) error { return stderrors.New("connection refused") }},
			},
			http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(nil, nil, nil, nil, tt.checks...)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

			h.Ready(c)

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestLive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load order: %w", errors.ErrNotFound), http.StatusNotFound},
		{"empty checkout", errors.ErrEmptyCheckout, http.StatusBadRequest},
		{"validation", errors.NewValidationError("status", "invalid order status"), http.StatusBadRequest},
		{"conflict", fmt.Errorf("insert: %w", errors.ErrConflict), http.StatusConflict},
		{"unexpected", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handleError(c, tt.err)

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		wantSet bool
		want    string
	}{
		{`12.5`, true, "12.5"},
		{`"18"`, true, "18"},
		{`" 40.00 "`, true, "40"},
		{`"18%"`, true, "18"},
		{`"abc"`, true, "0"},
		{`""`, true, "0"},
		{`null`, false, "0"},
	}

	for _, tt := range tests {
		var a Amount
		if err := json.Unmarshal([]byte(tt.input), &a); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
		}
		if a.Set != tt.wantSet {
			t.Errorf("Unmarshal(%s).Set = %v, want %v", tt.input, a.Set, tt.wantSet)
		}
		if !a.Value.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Unmarshal(%s).Value = %s, want %s", tt.input, a.Value, tt.want)
		}
	}
}

func TestAmount_Int(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{`3`, 3},
		{`"2.9"`, 2},
		{`"-1"`, -1},
		{`"1e20"`, 0},
		{`-99999999999`, 0},
		{`"2147483647"`, 2147483647},
		{`"x"`, 0},
	}

	for _, tt := range tests {
		var a Amount
		if err := json.Unmarshal([]byte(tt.input), &a); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
		}
		if got := a.Int(); got != tt.want {
			t.Errorf("Amount(%s).Int() = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestOrderPayload_BareChargeNamesAreNotFields(t *testing.T) {
	var p OrderPayload
	body := `{"customer": {"email": "asha@example.com"}, "gst": 18.00, "delivery": 40}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	req := p.toCreateRequest()

	if req.GSTPercent != nil {
		t.Errorf("GSTPercent = %v, want absent", req.GSTPercent)
	}
	if req.DeliveryCharge != nil {
		t.Errorf("DeliveryCharge = %v, want absent", req.DeliveryCharge)
	}
}

func TestOrderPayload_Aliases(t *testing.T) {
	body := `{
		"customerName": "Asha",
		"customerEmail": "asha@example.com",
		"paymentMethod": "prepaid",
		"address": {"addressLine1": "12 MG Road", "city": "Pune", "pin_code": "411001"},
		"items": [
			{"productName": "Widget", "unitPrice": "100.00", "qty": "2"},
			{"name": "GST", "price": 18}
		],
		"gstPercent": "",
		"deliveryCharge": "40",
		"totalPayable": 258
	}`

	var p OrderPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	req := p.toCreateRequest()

	if req.Customer.Email != "asha@example.com" || req.Customer.Name != "Asha" {
		t.Errorf("Customer = %+v", req.Customer)
	}
	if req.PaymentMethod != models.PaymentMethodPrepaid {
		t.Errorf("PaymentMethod = %s, want prepaid", req.PaymentMethod)
	}
	if req.ShippingAddress.Line1 != "12 MG Road" || req.ShippingAddress.Pincode != "411001" {
		t.Errorf("ShippingAddress = %+v", req.ShippingAddress)
	}
	if len(req.Items) != 2 {
		t.Fatalf("Items = %+v, want 2", req.Items)
	}
	if req.Items[0].Quantity != 2 || !req.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Items[0] = %+v", req.Items[0])
	}
	if req.Items[1].Quantity != 1 {
		t.Errorf("Items[1].Quantity = %d, want default 1", req.Items[1].Quantity)
	}
	if req.GSTPercent == nil || !req.GSTPercent.IsZero() {
		t.Errorf("GSTPercent = %v, want explicit zero", req.GSTPercent)
	}
	if req.DeliveryCharge == nil || !req.DeliveryCharge.Equal(decimal.NewFromInt(40)) {
		t.Errorf("DeliveryCharge = %v, want 40", req.DeliveryCharge)
	}
	if req.ClientTotal == nil || !req.ClientTotal.Equal(decimal.NewFromInt(258)) {
		t.Errorf("ClientTotal = %v, want 258", req.ClientTotal)
	}
}

func TestOrderPayload_UpdatePresence(t *testing.T) {
	var p OrderPayload
	if err := json.Unmarshal([]byte(`{"notes": "call first", "delivery_charge": null}`), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	req := p.toUpdateRequest()

	if req.ItemsPresent() {
		t.Error("Expected items to be absent")
	}
	if req.GSTPercent != nil || req.DeliveryCharge != nil {
		t.Errorf("charges = %v / %v, want absent", req.GSTPercent, req.DeliveryCharge)
	}
	if req.Customer != nil {
		t.Errorf("Customer = %+v, want nil", req.Customer)
	}
	if req.Notes == nil || *req.Notes != "call first" {
		t.Errorf("Notes = %v", req.Notes)
	}
}

func TestCheckoutPayload(t *testing.T) {
	body := `{
		"customer": {"name": "Asha", "email": "asha@example.com"},
		"items": [{"productId": "prd_1", "quantity": "3"}, {"product_id": "prd_2"}],
		"total_amount": "130.00"
	}`

	var p CheckoutPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	req := p.toRequest("cus_9")

	if req.CustomerID != "cus_9" || req.Customer.Email != "asha@example.com" {
		t.Errorf("customer = %s / %+v", req.CustomerID, req.Customer)
	}
	if len(req.Items) != 2 || req.Items[0].Quantity != 3 || req.Items[1].Quantity != 1 {
		t.Errorf("Items = %+v", req.Items)
	}
	if req.ClientTotal == nil || !req.ClientTotal.Equal(decimal.NewFromInt(130)) {
		t.Errorf("ClientTotal = %v, want 130", req.ClientTotal)
	}
}

func TestPreviewPayload_Options(t *testing.T) {
	tests := []struct {
		mode       string
		wantOK     bool
		wantTrust  bool
		wantUpdate bool
	}{
		{"", true, false, false},
		{"create", true, false, false},
		{"Checkout", true, true, false},
		{"update", true, false, true},
		{"refund", false, false, false},
	}

	for _, tt := range tests {
		p := PreviewPayload{Mode: tt.mode}
		opts, ok := p.options()
		if ok != tt.wantOK {
			t.Errorf("options(%q) ok = %v, want %v", tt.mode, ok, tt.wantOK)
			continue
		}
		if opts.TrustClientTotal != tt.wantTrust || opts.IsUpdate != tt.wantUpdate {
			t.Errorf("options(%q) = %+v", tt.mode, opts)
		}
	}
}
