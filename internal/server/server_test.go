package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/repository"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/service"
)

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	catalog := repository.NewMemoryProductCatalog(
		&models.Product{ID: "prd_widget", Name: "Widget", SellingPrice: decimal.NewFromInt(100)},
	)
	carts := repository.NewMemoryCartStore()

	orders := service.NewOrderService(repository.NewMemoryOrderRepository(), nil, pricing.NewCalculator(nil), nil, nil, cfg)
	checkout := service.NewCheckoutService(orders, catalog, carts)
	cart := service.NewCartService(carts, catalog, orders.Calculator())

	return New(handlers.NewHandlers(orders, checkout, cart, cfg), cfg)
}

func do(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) models.Order {
	t.Helper()
	var order models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("Failed to parse order: %v (%s)", err, w.Body.String())
	}
	return order
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodPost, "/api/v2/orders", `{
		"customer": {"name": "Asha", "email": "asha@example.com"},
		"items": [{"name": "Widget", "price": "100", "quantity": 1}],
		"gst_percent": 12,
		"deliveryCharge": "50"
	}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeOrder(t, w)
	if !created.Total.Equal(decimal.NewFromInt(162)) {
		t.Errorf("Total = %s, want 162", created.Total)
	}
	if w.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("Expected X-Request-ID response header")
	}

	// Notes-only update keeps the stored totals.
	w = do(t, s, http.MethodPatch, "/api/v2/orders/"+created.ID, `{"notes": "gift wrap", "total": 999}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	if updated := decodeOrder(t, w); !updated.Total.Equal(decimal.NewFromInt(162)) {
		t.Errorf("Total after notes update = %s, want 162", updated.Total)
	}

	w = do(t, s, http.MethodPatch, "/api/v2/orders/"+created.ID+"/status", `{"status": "accepted"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status update = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPatch, "/api/v2/orders/"+created.ID+"/status", `{"status": "completed"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid transition status = %d, want 400", w.Code)
	}

	w = do(t, s, http.MethodPost, "/api/v2/orders/"+created.ID+"/cancel", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body = %s", w.Code, w.Body.String())
	}
	if cancelled := decodeOrder(t, w); cancelled.Status != models.OrderStatusCancelled {
		t.Errorf("Status = %s, want cancelled", cancelled.Status)
	}

	w = do(t, s, http.MethodGet, "/api/v2/orders?status=cancelled", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 {
		t.Errorf("list total = %d, want 1", list.Total)
	}

	if w = do(t, s, http.MethodGet, "/api/v2/orders/ord_missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing order status = %d, want 404", w.Code)
	}
}

func TestPreviewTotals(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodPost, "/api/v2/orders/totals/preview", `{
		"mode": "checkout",
		"items": [{"name": "Widget", "price": 100, "quantity": 1}],
		"totalPayable": "130.00"
	}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body = %s", w.Code, w.Body.String())
	}

	var totals pricing.Totals
	if err := json.Unmarshal(w.Body.Bytes(), &totals); err != nil {
		t.Fatalf("Failed to parse totals: %v", err)
	}
	if !totals.GSTAmount.Equal(decimal.NewFromInt(30)) || !totals.Total.Equal(decimal.NewFromInt(130)) {
		t.Errorf("totals = %+v, want gst 30 and total 130", totals)
	}

	if w = do(t, s, http.MethodPost, "/api/v2/orders/totals/preview", `{"mode": "refund"}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want 400", w.Code)
	}
}

func TestStorefrontCheckout(t *testing.T) {
	s := newTestServer()
	customer := map[string]string{middleware.HeaderCustomerID: "cus_7"}

	if w := do(t, s, http.MethodGet, "/api/v2/storefront/cart", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous cart status = %d, want 401", w.Code)
	}

	w := do(t, s, http.MethodPost, "/api/v2/storefront/cart/items", `{"product_id": "prd_widget", "quantity": 2}`, customer)
	if w.Code != http.StatusOK {
		t.Fatalf("add to cart status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/api/v2/storefront/checkout", `{
		"customer": {"name": "Ravi", "email": "ravi@example.com"},
		"payment_method": "prepaid",
		"total": 236
	}`, customer)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, body = %s", w.Code, w.Body.String())
	}

	var result struct {
		Order models.Order `json:"order"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Order.Subtotal.Equal(decimal.NewFromInt(200)) || !result.Order.GSTAmount.Equal(decimal.NewFromInt(36)) {
		t.Errorf("order = subtotal %s gst %s, want 200 / 36", result.Order.Subtotal, result.Order.GSTAmount)
	}

	w = do(t, s, http.MethodPost, "/api/v2/storefront/checkout", `{"customer": {"email": "ravi@example.com"}}`, customer)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty checkout status = %d, want 400", w.Code)
	}
	var errResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp["error"] != "No items to checkout" {
		t.Errorf("error = %v, want No items to checkout", errResp["error"])
	}
}

func TestOpsRoutes(t *testing.T) {
	s := newTestServer()

	for _, path := range []string{"/health", "/ready", "/live", "/version", "/metrics"} {
		if w := do(t, s, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}
