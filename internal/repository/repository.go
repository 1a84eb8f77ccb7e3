package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

var (
	_ OrderRepository = (*PostgresOrderRepository)(nil)
	_ OrderRepository = (*MemoryOrderRepository)(nil)
	_ OrderCache      = (*RedisOrderCache)(nil)
	_ CartStore       = (*RedisCartStore)(nil)
	_ CartStore       = (*MemoryCartStore)(nil)
	_ ProductCatalog  = (*PostgresProductCatalog)(nil)
	_ ProductCatalog  = (*MemoryProductCatalog)(nil)
)

// Mutation describes what an UpdateFunc changed on the order it was given.
type Mutation struct {
	Changed         bool
	ItemsReplaced   bool
	CustomerChanged bool
}

// UpdateFunc mutates order in place. It runs while the order is locked
// against concurrent updates, so reads it makes of order are current.
type UpdateFunc func(order *models.Order) (Mutation, error)

// OrderRepository persists orders together with their real line items.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error)
	// Update loads the order, applies fn and persists the result as one
	// unit. Nothing is written when fn reports no change or fails.
	Update(ctx context.Context, id string, fn UpdateFunc) (*models.Order, error)
}

// OrderCache defines caching operations for orders.
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}

// CartStore holds storefront carts keyed by customer.
type CartStore interface {
	Items(ctx context.Context, customerID string) ([]models.CartItem, error)
	Add(ctx context.Context, customerID, productID string, quantity int) error
	Remove(ctx context.Context, customerID, productID string) error
	Clear(ctx context.Context, customerID string) error
}

// ProductCatalog resolves product prices. Unknown IDs are absent from the
// returned map.
type ProductCatalog interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error)
}

func generateOrderID() string {
	return "ord_" + uuid.NewString()
}

func generateItemID() string {
	return "itm_" + uuid.NewString()
}

func generateCustomerID() string {
	return "cus_" + uuid.NewString()
}

// cloneOrder deep-copies order so callers never share item slices.
func cloneOrder(order *models.Order) *models.Order {
	if order == nil {
		return nil
	}
	cp := *order
	if order.Items != nil {
		cp.Items = append([]models.OrderItem(nil), order.Items...)
	}
	return &cp
}

// assignItemIDs gives every item without an ID a fresh one.
func assignItemIDs(items []models.OrderItem) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = generateItemID()
		}
	}
}
