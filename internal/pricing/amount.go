package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places persisted and displayed.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a caller-supplied numeric string to a decimal.
// Blank or unparseable input yields zero instead of an error. A trailing
// percent sign is ignored so "18%" and "18" parse the same.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseOptionalAmount is ParseAmount for optional inputs: nil stays nil.
func ParseOptionalAmount(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d := ParseAmount(*s)
	return &d
}

// Round rounds to currency precision, halves away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Ptr returns a pointer to d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func isSetNonZero(d *decimal.Decimal) bool {
	return d != nil && !d.IsZero()
}
