package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		raw      string
		wantName string
		wantQty  int
		want     string
		wantErr  bool
	}{
		{"Widget:100:2", "Widget", 2, "100", false},
		{"GST:18", "GST", 1, "18", false},
		{"Delivery Charge: 40.50 ", "Delivery Charge", 1, "40.5", false},
		{"Tea: Assam:120:3", "Tea: Assam", 3, "120", false},
		{"Widget:abc:1", "Widget", 1, "0", false},
		{"Widget", "", 0, "0", true},
		{":100", "", 0, "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			line, err := parseLine(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLine(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if line.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", line.Name, tt.wantName)
			}
			if line.Quantity != tt.wantQty {
				t.Errorf("Quantity = %d, want %d", line.Quantity, tt.wantQty)
			}
			if !line.UnitPrice.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("UnitPrice = %s, want %s", line.UnitPrice, tt.want)
			}
		})
	}
}

func TestModeOptions(t *testing.T) {
	if _, err := modeOptions("refund"); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if opts, _ := modeOptions("Checkout"); !opts.TrustClientTotal {
		t.Errorf("checkout options = %+v, want TrustClientTotal", opts)
	}
}

func TestTotalsCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantGST   string
		wantTotal string
	}{
		{
			name:      "create",
			args:      []string{"--item", "Widget:100:2", "--gst-percent", "18", "--delivery", "40"},
			wantGST:   "36",
			wantTotal: "276",
		},
		{
			name:      "checkout absorbs client total",
			args:      []string{"--mode", "checkout", "--item", "Widget:100", "--client-total", "130"},
			wantGST:   "30",
			wantTotal: "130",
		},
		{
			name:      "update falls back to stored percent",
			args:      []string{"--mode", "update", "--item", "Widget:100", "--stored-gst-percent", "12"},
			wantGST:   "12",
			wantTotal: "112",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(append([]string{"totals"}, tt.args...))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			var got pricing.Totals
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("Failed to parse output: %v (%s)", err, out.String())
			}
			if !got.GSTAmount.Equal(decimal.RequireFromString(tt.wantGST)) {
				t.Errorf("GSTAmount = %s, want %s", got.GSTAmount, tt.wantGST)
			}
			if !got.Total.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", got.Total, tt.wantTotal)
			}
		})
	}
}
