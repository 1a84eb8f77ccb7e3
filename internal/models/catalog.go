package models

import "github.com/shopspring/decimal"

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku,omitempty"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	MRP          decimal.Decimal `json:"mrp"`
	// GST is the product's own tax percent, used at checkout when the
	// shopper's payload carries none.
	GST          decimal.Decimal `json:"gst"`
}

// Price is the selling price, or the MRP when no selling price is set.
func (p Product) Price() decimal.Decimal {
	if p.SellingPrice.IsPositive() {
		return p.SellingPrice
	}
	return p.MRP
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
