// Package pricing derives order totals (subtotal, GST, delivery, total)
// from order lines and optional caller-supplied charge inputs.
//
// Every call site (admin order creation, admin order update, storefront
// checkout) goes through Calculator.Calculate; the differences between
// them are expressed only through Options.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Line is one order line. Synthetic charge lines ("GST", "Delivery
// Charge", ...) use the same shape and are told apart by name.
type Line struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Amount is UnitPrice*Quantity, or zero when either is not positive.
func (l Line) Amount() decimal.Decimal {
	if l.Quantity <= 0 || !l.UnitPrice.IsPositive() {
		return decimal.Zero
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// chargeAmount is the fee a synthetic line carries: its unit price.
// Quantity is ignored for charge lines.
func (l Line) chargeAmount() decimal.Decimal {
	if !l.UnitPrice.IsPositive() {
		return decimal.Zero
	}
	return l.UnitPrice
}

// ChargeInputs are charge values supplied directly by the caller. A nil
// field is absent.
type ChargeInputs struct {
	GSTPercent     *decimal.Decimal
	DeliveryCharge *decimal.Decimal
	ClientTotal    *decimal.Decimal
}

// Options select the behaviour of one call context.
type Options struct {
	// TrustClientTotal makes a client total >= subtotal the order total.
	TrustClientTotal bool
	// IsUpdate marks a recompute of an existing order. Client totals are
	// reconciled but not trusted, and Stored charges fill absent inputs.
	IsUpdate bool
	// Stored holds the charges already persisted on the order.
	Stored *ChargeInputs
}

// ResidualTarget names the component that absorbed a client-total residual.
type ResidualTarget string

const (
	ResidualNone     ResidualTarget = ""
	ResidualGST      ResidualTarget = "gst"
	ResidualDelivery ResidualTarget = "delivery"
)

// Totals is the result of a calculation. Total equals
// Subtotal+GSTAmount+DeliveryCharge except when a trusted client total
// could not be fully reconciled; the gap is then reported in Discrepancy.
type Totals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	GSTPercent         decimal.Decimal `json:"gst_percent"`
	GSTAmount          decimal.Decimal `json:"gst_amount"`
	DeliveryCharge     decimal.Decimal `json:"delivery_charge"`
	Total              decimal.Decimal `json:"total"`
	Discrepancy        decimal.Decimal `json:"discrepancy"`
	ClientTotalTrusted bool            `json:"client_total_trusted"`
	Residual           ResidualTarget  `json:"residual_applied,omitempty"`
}

// Rounded returns t with every amount at currency precision.
func (t Totals) Rounded() Totals {
	t.Subtotal = Round(t.Subtotal)
	t.GSTPercent = Round(t.GSTPercent)
	t.GSTAmount = Round(t.GSTAmount)
	t.DeliveryCharge = Round(t.DeliveryCharge)
	t.Total = Round(t.Total)
	t.Discrepancy = Round(t.Discrepancy)
	return t
}

// Partition is the result of splitting lines into products and charges.
type Partition struct {
	Products          []Line
	Charges           []Line
	Subtotal          decimal.Decimal
	GSTFromItems      decimal.Decimal
	DeliveryFromItems decimal.Decimal
}

// Calculator computes order totals. It holds no mutable state and is safe
// for concurrent use.
type Calculator struct {
	vocab *Vocabulary
}

// NewCalculator creates a calculator; a nil vocabulary selects the default.
func NewCalculator(vocab *Vocabulary) *Calculator {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Calculator{vocab: vocab}
}

// Vocabulary returns the charge-line vocabulary in use.
func (c *Calculator) Vocabulary() *Vocabulary {
	return c.vocab
}

// Partition splits lines into product lines and synthetic charge lines,
// accumulating the subtotal and the charge amounts the lines carry.
func (c *Calculator) Partition(lines []Line) Partition {
	p := Partition{
		Subtotal:          decimal.Zero,
		GSTFromItems:      decimal.Zero,
		DeliveryFromItems: decimal.Zero,
	}

	for _, l := range lines {
		switch c.vocab.Classify(l.Name) {
		case KindGST:
			p.GSTFromItems = p.GSTFromItems.Add(l.chargeAmount())
			p.Charges = append(p.Charges, l)
		case KindDelivery:
			p.DeliveryFromItems = p.DeliveryFromItems.Add(l.chargeAmount())
			p.Charges = append(p.Charges, l)
		default:
			p.Subtotal = p.Subtotal.Add(l.Amount())
			p.Products = append(p.Products, l)
		}
	}

	return p
}

// Calculate derives totals for lines under the given inputs and options.
// Amounts are kept at full precision; call Rounded before persisting.
func (c *Calculator) Calculate(lines []Line, in ChargeInputs, opts Options) Totals {
	p := c.Partition(lines)
	subtotal := p.Subtotal

	gstPercent := c.resolveGSTPercent(p, in, opts)
	delivery := c.resolveDelivery(p, in, opts)

	gstAmount := decimal.Zero
	if subtotal.IsPositive() {
		gstAmount = subtotal.Mul(gstPercent).Div(hundred)
	}

	t := Totals{
		Subtotal:       subtotal,
		GSTPercent:     gstPercent,
		GSTAmount:      gstAmount,
		DeliveryCharge: delivery,
		Discrepancy:    decimal.Zero,
	}

	reconcile := in.ClientTotal != nil && (opts.TrustClientTotal || opts.IsUpdate)
	if reconcile {
		c.absorbResidual(&t, *in.ClientTotal, isSetNonZero(in.GSTPercent))
	}

	sum := t.Subtotal.Add(t.GSTAmount).Add(t.DeliveryCharge)
	t.Total = sum

	if opts.TrustClientTotal && in.ClientTotal != nil && in.ClientTotal.GreaterThanOrEqual(subtotal) {
		t.Total = *in.ClientTotal
		t.ClientTotalTrusted = true
		t.Discrepancy = t.Total.Sub(sum)
	}

	return t
}

func (c *Calculator) resolveGSTPercent(p Partition, in ChargeInputs, opts Options) decimal.Decimal {
	switch {
	case isSetNonZero(in.GSTPercent):
		return *in.GSTPercent
	case p.Subtotal.IsPositive() && p.GSTFromItems.IsPositive():
		return p.GSTFromItems.Div(p.Subtotal).Mul(hundred)
	case opts.IsUpdate && in.GSTPercent == nil && opts.Stored != nil && opts.Stored.GSTPercent != nil:
		return *opts.Stored.GSTPercent
	default:
		return decimal.Zero
	}
}

func (c *Calculator) resolveDelivery(p Partition, in ChargeInputs, opts Options) decimal.Decimal {
	switch {
	case isSetNonZero(in.DeliveryCharge):
		return *in.DeliveryCharge
	case p.DeliveryFromItems.IsPositive():
		return p.DeliveryFromItems
	case opts.IsUpdate && in.DeliveryCharge == nil && opts.Stored != nil && opts.Stored.DeliveryCharge != nil:
		return *opts.Stored.DeliveryCharge
	default:
		return decimal.Zero
	}
}

// absorbResidual assigns a positive gap between the client total and the
// computed components to GST first, then to delivery. GST cannot absorb
// anything on an empty subtotal.
func (c *Calculator) absorbResidual(t *Totals, clientTotal decimal.Decimal, explicitPercent bool) {
	residual := clientTotal.Sub(t.Subtotal).Sub(t.DeliveryCharge).Sub(t.GSTAmount)
	if !residual.IsPositive() {
		return
	}

	switch {
	case t.GSTAmount.IsZero() && t.Subtotal.IsPositive():
		t.GSTAmount = residual
		t.Residual = ResidualGST
		if !explicitPercent {
			t.GSTPercent = residual.Div(t.Subtotal).Mul(hundred)
		}
	case t.DeliveryCharge.IsZero():
		t.DeliveryCharge = t.DeliveryCharge.Add(residual)
		t.Residual = ResidualDelivery
	}
}

// NeedsRecompute reports whether an update touches anything totals depend
// on: replaced items or any charge field.
func NeedsRecompute(itemsPresent bool, in ChargeInputs) bool {
	return itemsPresent || in.GSTPercent != nil || in.DeliveryCharge != nil
}
