package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/repository"
)

// CheckoutResult is a placed storefront order with the totals that priced it.
type CheckoutResult struct {
	Order  *models.Order  `json:"order"`
	Totals pricing.Totals `json:"totals"`
}

// CheckoutService turns a storefront cart or item list into an order.
type CheckoutService struct {
	orders  *OrderService
	catalog repository.ProductCatalog
	carts   repository.CartStore
	logger  *logging.LoggerV2
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(orders *OrderService, catalog repository.ProductCatalog, carts repository.CartStore) *CheckoutService {
	return &CheckoutService{
		orders:  orders,
		catalog: catalog,
		carts:   carts,
		logger:  logging.NewLoggerV2("checkout-service"),
	}
}

// Checkout prices the request against the catalog and places the order.
// Without a GST percent in the request, the first product carrying its
// own GST percent sets it. A client-declared total at or above the
// subtotal is honoured as the order total. Catalog products named like a
// charge line price the charge and are not stored as order items. The
// customer's cart is cleared afterwards.
func (s *CheckoutService) Checkout(ctx context.Context, req *models.CheckoutRequest) (*CheckoutResult, error) {
	s.logger.Info("Checking out", logging.Fields{
		"customer_id": req.CustomerID,
		"item_count":  len(req.Items),
	})

	if err := ValidateCheckoutRequest(req); err != nil {
		return nil, err
	}

	requested, err := s.requestedItems(ctx, req)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolveItems(ctx, requested)
	if err != nil {
		return nil, err
	}
	calc := s.orders.Calculator()
	lines, items := splitItems(calc, resolved.items)
	if len(items) == 0 {
		return nil, errors.ErrEmptyCheckout
	}

	in := req.Charges()
	if (in.GSTPercent == nil || in.GSTPercent.IsZero()) && resolved.gstPercent.IsPositive() {
		in.GSTPercent = pricing.Ptr(resolved.gstPercent)
	}

	totals := calc.Calculate(lines, in, pricing.Options{TrustClientTotal: true})
	recordTotals(s.logger, pathCheckout, totals)
	s.recordClientTotal(req, totals)

	customer := req.Customer
	if customer.ID == "" {
		customer.ID = req.CustomerID
	}

	order := &models.Order{
		Customer:        customer,
		Status:          models.OrderStatusPending,
		PaymentMethod:   models.NormalizePaymentMethod(string(req.PaymentMethod)),
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		Notes:           SanitizeOrderNotes(req.Notes),
		Source:          models.OrderSourceStorefront,
	}
	order.ApplyTotals(totals)

	created, err := s.orders.persistNewOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	if s.carts != nil {
		if err := s.carts.Clear(ctx, req.CustomerID); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to clear cart after checkout", logging.Fields{
				"customer_id": req.CustomerID,
				"order_id":    created.ID,
				"error":       err.Error(),
			})
		}
	}

	return &CheckoutResult{Order: created, Totals: totals.Rounded()}, nil
}

// requestedItems returns the request's items, or the cart when it has none.
func (s *CheckoutService) requestedItems(ctx context.Context, req *models.CheckoutRequest) ([]models.CheckoutItem, error) {
	if len(req.Items) > 0 || s.carts == nil {
		return req.Items, nil
	}

	cart, err := s.carts.Items(ctx, req.CustomerID)
	if err != nil {
		s.logger.Error("Failed to load cart", logging.Fields{
			"customer_id": req.CustomerID,
			"error":       err.Error(),
		})
		return nil, err
	}

	items := make([]models.CheckoutItem, 0, len(cart))
	for _, item := range cart {
		items = append(items, models.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items, nil
}

// resolvedItems are requested items priced from the catalog, with the
// first non-zero product GST percent among real products.
type resolvedItems struct {
	items      []models.OrderItem
	gstPercent decimal.Decimal
}

// resolveItems prices requested items from the catalog. Items with a
// non-positive quantity or an unknown product are skipped.
func (s *CheckoutService) resolveItems(ctx context.Context, requested []models.CheckoutItem) (resolvedItems, error) {
	var resolved resolvedItems

	ids := make([]string, 0, len(requested))
	for _, item := range requested {
		if item.Quantity > 0 && item.ProductID != "" {
			ids = append(ids, item.ProductID)
		}
	}
	if len(ids) == 0 {
		return resolved, nil
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return resolved, err
	}

	vocab := s.orders.Calculator().Vocabulary()
	resolved.items = make([]models.OrderItem, 0, len(ids))
	for _, item := range requested {
		if item.Quantity <= 0 {
			continue
		}
		product, ok := products[item.ProductID]
		if !ok {
			s.logger.Warn("Skipping unknown product at checkout", logging.Fields{"product_id": item.ProductID})
			continue
		}
		resolved.items = append(resolved.items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			UnitPrice: product.Price(),
			Quantity:  item.Quantity,
		})
		if resolved.gstPercent.IsZero() && product.GST.IsPositive() && !vocab.IsCharge(product.Name) {
			resolved.gstPercent = product.GST
		}
	}
	return resolved, nil
}

func (s *CheckoutService) recordClientTotal(req *models.CheckoutRequest, totals pricing.Totals) {
	decision := metrics.DecisionAbsent
	switch {
	case req.ClientTotal == nil:
	case !totals.ClientTotalTrusted:
		decision = metrics.DecisionIgnored
	case !totals.Discrepancy.IsZero():
		decision = metrics.DecisionMismatch
		s.logger.Warn("Client total differs from its components", logging.Fields{
			"customer_id":  req.CustomerID,
			"client_total": totals.Total.StringFixed(pricing.CurrencyPlaces),
			"discrepancy":  totals.Discrepancy.StringFixed(pricing.CurrencyPlaces),
		})
	default:
		decision = metrics.DecisionTrusted
	}
	metrics.ClientTotalDecisions.WithLabelValues(decision).Inc()
}
