package handlers

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
)

// Amount is a money or percentage field sent by the admin UI or the
// storefront. It accepts a JSON number, a numeric string or null.
// Malformed values decode as zero rather than failing the request.
type Amount struct {
	Value decimal.Decimal
	Set   bool
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err == nil {
			s = str
		}
	}

	a.Value = pricing.ParseAmount(s)
	a.Set = true
	return nil
}

// Ptr returns nil when the field was absent or null.
func (a Amount) Ptr() *decimal.Decimal {
	if !a.Set {
		return nil
	}
	return pricing.Ptr(a.Value)
}

var (
	maxCount = decimal.NewFromInt(math.MaxInt32)
	minCount = decimal.NewFromInt(math.MinInt32)
)

// Int truncates the amount to a whole number. Values outside the int32
// range decode as zero, like any other malformed count.
func (a Amount) Int() int {
	if a.Value.GreaterThan(maxCount) || a.Value.LessThan(minCount) {
		return 0
	}
	return int(a.Value.IntPart())
}

// fields is a decoded JSON object whose keys are looked up by alias.
type fields map[string]json.RawMessage

// decode unmarshals the first present key into dst and reports whether
// any key was present.
func (f fields) decode(dst interface{}, keys ...string) (bool, error) {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok {
			continue
		}
		return true, json.Unmarshal(raw, dst)
	}
	return false, nil
}

// present reports whether any of keys was sent with a non-null value.
func (f fields) present(keys ...string) bool {
	for _, key := range keys {
		if raw, ok := f[key]; ok && strings.TrimSpace(string(raw)) != "null" {
			return true
		}
	}
	return false
}

// Field aliases accepted from the admin UI (camelCase) and the storefront
// (snake_case). Bare "gst" and "delivery" are line names carrying amounts,
// never charge fields.
var (
	aliasGSTPercent     = []string{"gst_percent", "gstPercent"}
	aliasDeliveryCharge = []string{"delivery_charge", "deliveryCharge"}
	aliasClientTotal    = []string{"total", "totalPayable", "total_payable", "total_amount", "totalAmount"}
	aliasPaymentMethod  = []string{"payment_method", "paymentMethod", "payment"}
	aliasAddress        = []string{"shipping_address", "shippingAddress", "address"}
)

type chargesPayload struct {
	GSTPercent     Amount
	DeliveryCharge Amount
	ClientTotal    Amount
}

func (p *chargesPayload) decode(f fields) error {
	if _, err := f.decode(&p.GSTPercent, aliasGSTPercent...); err != nil {
		return err
	}
	if _, err := f.decode(&p.DeliveryCharge, aliasDeliveryCharge...); err != nil {
		return err
	}
	_, err := f.decode(&p.ClientTotal, aliasClientTotal...)
	return err
}

func (p chargesPayload) inputs() pricing.ChargeInputs {
	return pricing.ChargeInputs{
		GSTPercent:     p.GSTPercent.Ptr(),
		DeliveryCharge: p.DeliveryCharge.Ptr(),
		ClientTotal:    p.ClientTotal.Ptr(),
	}
}

// ItemPayload is one order line as the admin UI sends it.
type ItemPayload struct {
	ProductID string
	Name      string
	SKU       string
	Price     Amount
	Quantity  Amount
}

func (p *ItemPayload) UnmarshalJSON(b []byte) error {
	var f fields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if _, err := f.decode(&p.ProductID, "product_id", "productId"); err != nil {
		return err
	}
	if _, err := f.decode(&p.Name, "name", "product_name", "productName", "title"); err != nil {
		return err
	}
	if _, err := f.decode(&p.SKU, "sku"); err != nil {
		return err
	}
	if _, err := f.decode(&p.Price, "price", "unit_price", "unitPrice", "selling_price", "sellingPrice"); err != nil {
		return err
	}
	if ok, err := f.decode(&p.Quantity, "quantity", "qty"); err != nil {
		return err
	} else if !ok {
		p.Quantity = Amount{Value: decimal.NewFromInt(1), Set: true}
	}
	return nil
}

func (p ItemPayload) toModel() models.OrderItem {
	return models.OrderItem{
		ProductID: p.ProductID,
		Name:      strings.TrimSpace(p.Name),
		SKU:       p.SKU,
		UnitPrice: p.Price.Value,
		Quantity:  p.Quantity.Int(),
	}
}

func itemsToModels(items []ItemPayload) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.toModel())
	}
	return out
}

// customerPayload accepts a nested "customer" object or flat customer_*
// fields.
type customerPayload struct {
	models.Customer
	set bool
}

func (p *customerPayload) decode(f fields) error {
	var nested fields
	ok, err := f.decode(&nested, "customer")
	if err != nil {
		return err
	}
	if ok && nested != nil {
		p.set = true
		return p.decodeFlat(nested, "")
	}
	p.set = f.present("customer_name", "customerName", "customer_email", "customerEmail", "email", "customer_phone", "customerPhone", "phone")
	return p.decodeFlat(f, "customer")
}

func (p *customerPayload) decodeFlat(f fields, prefix string) error {
	names := func(field string) []string {
		if prefix == "" {
			return []string{field}
		}
		return []string{prefix + "_" + field, prefix + strings.ToUpper(field[:1]) + field[1:], field}
	}
	if prefix == "" {
		if _, err := f.decode(&p.ID, "id"); err != nil {
			return err
		}
	}
	if _, err := f.decode(&p.Name, names("name")...); err != nil {
		return err
	}
	if _, err := f.decode(&p.Email, names("email")...); err != nil {
		return err
	}
	_, err := f.decode(&p.Phone, names("phone")...)
	return err
}

type addressPayload struct {
	models.Address
}

// A plain string is taken as the first address line.
func (p *addressPayload) UnmarshalJSON(b []byte) error {
	if trimmed := strings.TrimSpace(string(b)); strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(b, &p.Line1)
	}

	var f fields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if _, err := f.decode(&p.Line1, "line1", "address_line1", "addressLine1", "street"); err != nil {
		return err
	}
	if _, err := f.decode(&p.Line2, "line2", "address_line2", "addressLine2"); err != nil {
		return err
	}
	if _, err := f.decode(&p.City, "city"); err != nil {
		return err
	}
	if _, err := f.decode(&p.State, "state"); err != nil {
		return err
	}
	_, err := f.decode(&p.Pincode, "pincode", "pin_code", "pinCode", "postal_code", "postalCode")
	return err
}

// OrderPayload is the admin create and update body. Presence of each
// field is tracked so updates can distinguish omitted from zero.
type OrderPayload struct {
	chargesPayload
	customer      customerPayload
	PaymentMethod *string
	Address       *addressPayload
	Items         *[]ItemPayload
	Status        *string
	Notes         *string
}

func (p *OrderPayload) UnmarshalJSON(b []byte) error {
	var f fields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if err := p.chargesPayload.decode(f); err != nil {
		return err
	}
	if err := p.customer.decode(f); err != nil {
		return err
	}
	if f.present(aliasPaymentMethod...) {
		p.PaymentMethod = new(string)
		if _, err := f.decode(p.PaymentMethod, aliasPaymentMethod...); err != nil {
			return err
		}
	}
	if f.present(aliasAddress...) {
		p.Address = &addressPayload{}
		if _, err := f.decode(p.Address, aliasAddress...); err != nil {
			return err
		}
	}
	if f.present("items", "lines") {
		items := []ItemPayload{}
		if _, err := f.decode(&items, "items", "lines"); err != nil {
			return err
		}
		p.Items = &items
	}
	if f.present("status") {
		p.Status = new(string)
		if _, err := f.decode(p.Status, "status"); err != nil {
			return err
		}
	}
	if f.present("notes") {
		p.Notes = new(string)
		if _, err := f.decode(p.Notes, "notes"); err != nil {
			return err
		}
	}
	return nil
}

func (p *OrderPayload) toCreateRequest() *models.CreateOrderRequest {
	req := &models.CreateOrderRequest{
		Customer:       p.customer.Customer,
		GSTPercent:     p.GSTPercent.Ptr(),
		DeliveryCharge: p.DeliveryCharge.Ptr(),
		ClientTotal:    p.ClientTotal.Ptr(),
	}
	if p.PaymentMethod != nil {
		req.PaymentMethod = models.PaymentMethod(*p.PaymentMethod)
	}
	if p.Address != nil {
		req.ShippingAddress = p.Address.Address
	}
	if p.Items != nil {
		req.Items = itemsToModels(*p.Items)
	}
	if p.Notes != nil {
		req.Notes = *p.Notes
	}
	return req
}

func (p *OrderPayload) toUpdateRequest() *models.UpdateOrderRequest {
	req := &models.UpdateOrderRequest{
		GSTPercent:     p.GSTPercent.Ptr(),
		DeliveryCharge: p.DeliveryCharge.Ptr(),
		ClientTotal:    p.ClientTotal.Ptr(),
		Notes:          p.Notes,
	}
	if p.customer.set {
		customer := p.customer.Customer
		req.Customer = &customer
	}
	if p.Status != nil {
		status := models.OrderStatus(*p.Status)
		req.Status = &status
	}
	if p.PaymentMethod != nil {
		method := models.PaymentMethod(*p.PaymentMethod)
		req.PaymentMethod = &method
	}
	if p.Address != nil {
		address := p.Address.Address
		req.ShippingAddress = &address
	}
	if p.Items != nil {
		items := itemsToModels(*p.Items)
		req.Items = &items
	}
	return req
}

// checkoutItemPayload is one storefront line: a product and a quantity.
type checkoutItemPayload struct {
	ProductID string
	Quantity  Amount
}

func (p *checkoutItemPayload) UnmarshalJSON(b []byte) error {
	var f fields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if _, err := f.decode(&p.ProductID, "product_id", "productId", "id"); err != nil {
		return err
	}
	if ok, err := f.decode(&p.Quantity, "quantity", "qty"); err != nil {
		return err
	} else if !ok {
		p.Quantity = Amount{Value: decimal.NewFromInt(1), Set: true}
	}
	return nil
}

// CheckoutPayload is the storefront checkout body.
type CheckoutPayload struct {
	chargesPayload
	customer      customerPayload
	PaymentMethod string
	Address       addressPayload
	Items         []checkoutItemPayload
	Notes         string
}

func (p *CheckoutPayload) UnmarshalJSON(b []byte) error {
	var f fields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if err := p.chargesPayload.decode(f); err != nil {
		return err
	}
	if err := p.customer.decode(f); err != nil {
		return err
	}
	if _, err := f.decode(&p.PaymentMethod, aliasPaymentMethod...); err != nil {
		return err
	}
	if f.present(aliasAddress...) {
		if _, err := f.decode(&p.Address, aliasAddress...); err != nil {
			return err
		}
	}
	if _, err := f.decode(&p.Items, "items", "cart"); err != nil {
		return err
	}
	_, err := f.decode(&p.Notes, "notes")
	return err
}

func (p *CheckoutPayload) toRequest(customerID string) *models.CheckoutRequest {
	req := &models.CheckoutRequest{
		CustomerID:      customerID,
		Customer:        p.customer.Customer,
		PaymentMethod:   models.PaymentMethod(p.PaymentMethod),
		ShippingAddress: p.Address.Address,
		GSTPercent:      p.GSTPercent.Ptr(),
		DeliveryCharge:  p.DeliveryCharge.Ptr(),
		ClientTotal:     p.ClientTotal.Ptr(),
		Notes:           p.Notes,
	}
	for _, item := range p.Items {
		req.Items = append(req.Items, models.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity.Int(),
		})
	}
	return req
}

// PreviewPayload asks for totals without placing an order.
type PreviewPayload struct {
	chargesPayload
	Items  []ItemPayload
	Mode   string
	Stored chargesPayload
}

func (p *PreviewPayload) UnmarshalJSON(b []byte) error {
	var f fields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if err := p.chargesPayload.decode(f); err != nil {
		return err
	}
	if _, err := f.decode(&p.Items, "items", "lines"); err != nil {
		return err
	}
	if _, err := f.decode(&p.Mode, "mode"); err != nil {
		return err
	}
	var stored fields
	if ok, err := f.decode(&stored, "stored"); err != nil {
		return err
	} else if ok && stored != nil {
		return p.Stored.decode(stored)
	}
	return nil
}

// options maps the preview mode onto calculator options.
func (p *PreviewPayload) options() (pricing.Options, bool) {
	switch strings.ToLower(strings.TrimSpace(p.Mode)) {
	case "", "create":
		return pricing.Options{}, true
	case "checkout":
		return pricing.Options{TrustClientTotal: true}, true
	case "update":
		stored := p.Stored.inputs()
		return pricing.Options{IsUpdate: true, Stored: &stored}, true
	default:
		return pricing.Options{}, false
	}
}
