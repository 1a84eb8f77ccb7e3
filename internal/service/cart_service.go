package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/repository"
)

// CartLine is a cart entry priced from the catalog.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

// CartView is a customer's cart with its running subtotal.
type CartView struct {
	CustomerID string          `json:"customer_id"`
	Items      []CartLine      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// CartService manages storefront carts.
type CartService struct {
	carts      repository.CartStore
	catalog    repository.ProductCatalog
	calculator *pricing.Calculator
	logger     *logging.LoggerV2
}

func NewCartService(carts repository.CartStore, catalog repository.ProductCatalog, calculator *pricing.Calculator) *CartService {
	if calculator == nil {
		calculator = pricing.NewCalculator(nil)
	}
	return &CartService{
		carts:      carts,
		catalog:    catalog,
		calculator: calculator,
		logger:     logging.NewLoggerV2("cart-service"),
	}
}

// GetCart returns the priced cart. Products no longer in the catalog are
// left out.
func (s *CartService) GetCart(ctx context.Context, customerID string) (*CartView, error) {
	if err := validateCustomerID(customerID); err != nil {
		return nil, err
	}

	items, err := s.carts.Items(ctx, customerID)
	if err != nil {
		return nil, err
	}

	view := &CartView{CustomerID: customerID, Items: []CartLine{}, Subtotal: decimal.Zero}
	if len(items) == 0 {
		return view, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		line := pricing.Line{Name: product.Name, UnitPrice: product.Price(), Quantity: item.Quantity}
		lines = append(lines, line)
		view.Items = append(view.Items, CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Amount:    pricing.Round(line.Amount()),
		})
	}

	view.Subtotal = pricing.Round(s.calculator.Partition(lines).Subtotal)
	return view, nil
}

// AddItem adds quantity of a catalog product to the cart.
func (s *CartService) AddItem(ctx context.Context, customerID string, item models.CartItem) (*CartView, error) {
	if err := validateCustomerID(customerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.ProductID) == "" {
		return nil, errors.NewValidationError("product_id", "product ID is required")
	}
	if item.Quantity < 1 {
		return nil, errors.NewValidationError("quantity", "quantity must be at least 1")
	}

	products, err := s.catalog.GetProducts(ctx, []string{item.ProductID})
	if err != nil {
		return nil, err
	}
	if _, ok := products[item.ProductID]; !ok {
		return nil, errors.ErrNotFound
	}

	if err := s.carts.Add(ctx, customerID, item.ProductID, item.Quantity); err != nil {
		s.logger.Error("Failed to add cart item", logging.Fields{
			"customer_id": customerID,
			"product_id":  item.ProductID,
			"error":       err.Error(),
		})
		return nil, err
	}

	return s.GetCart(ctx, customerID)
}

// RemoveItem drops a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, customerID, productID string) (*CartView, error) {
	if err := validateCustomerID(customerID); err != nil {
		return nil, err
	}
	if err := s.carts.Remove(ctx, customerID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, customerID string) error {
	if err := validateCustomerID(customerID); err != nil {
		return err
	}
	return s.carts.Clear(ctx, customerID)
}

func validateCustomerID(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return errors.NewValidationError("customer_id", "customer ID is required")
	}
	return nil
}
