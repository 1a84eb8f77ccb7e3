package pricing

import "strings"

// LineKind classifies an order line.
type LineKind int

const (
	KindProduct LineKind = iota
	KindGST
	KindDelivery
)

func (k LineKind) String() string {
	switch k {
	case KindGST:
		return "gst"
	case KindDelivery:
		return "delivery"
	default:
		return "product"
	}
}

// DefaultGSTNames are line names the admin UI and storefront use for tax.
var DefaultGSTNames = []string{"gst", "gst charge", "tax", "taxes", "igst", "cgst", "sgst"}

// DefaultDeliveryNames are line names used for delivery fees.
var DefaultDeliveryNames = []string{
	"delivery",
	"delivery charge",
	"delivery charges",
	"shipping",
	"shipping charge",
	"shipping charges",
}

// Vocabulary recognises synthetic charge lines by name. It is immutable
// once built.
type Vocabulary struct {
	gst      map[string]struct{}
	delivery map[string]struct{}
}

// NewVocabulary builds a vocabulary. A nil or empty list selects the
// corresponding default names.
func NewVocabulary(gstNames, deliveryNames []string) *Vocabulary {
	if len(gstNames) == 0 {
		gstNames = DefaultGSTNames
	}
	if len(deliveryNames) == 0 {
		deliveryNames = DefaultDeliveryNames
	}
	return &Vocabulary{
		gst:      nameSet(gstNames),
		delivery: nameSet(deliveryNames),
	}
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(nil, nil)
}

// Classify reports what kind of line name denotes. Matching ignores case,
// surrounding whitespace and repeated inner spaces.
func (v *Vocabulary) Classify(name string) LineKind {
	key := normalizeName(name)
	if _, ok := v.gst[key]; ok {
		return KindGST
	}
	if _, ok := v.delivery[key]; ok {
		return KindDelivery
	}
	return KindProduct
}

// IsCharge reports whether name denotes a synthetic charge line.
func (v *Vocabulary) IsCharge(name string) bool {
	return v.Classify(name) != KindProduct
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if key := normalizeName(n); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
