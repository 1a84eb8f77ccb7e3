package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLoggerV2_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	logger := NewLoggerV2("order-service")
	logger.Info("Order created", Fields{"order_id": "ord_1", "items": 2})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}

	if entry["component"] != "order-service" {
		t.Errorf("component = %v, want order-service", entry["component"])
	}
	if entry["order_id"] != "ord_1" {
		t.Errorf("order_id = %v, want ord_1", entry["order_id"])
	}
	if entry["message"] != "Order created" {
		t.Errorf("message = %v, want Order created", entry["message"])
	}
}

func TestLoggerV2_With(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	logger := NewLoggerV2("checkout").With(Fields{"customer_id": "cus_9"})
	logger.Error("Checkout failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}

	if entry["customer_id"] != "cus_9" {
		t.Errorf("customer_id = %v, want cus_9", entry["customer_id"])
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"warn", "warn"},
		{"error", "error"},
		{"info", "info"},
		{"bogus", "info"},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
