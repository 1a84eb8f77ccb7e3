package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

// MemoryOrderRepository keeps orders in process memory. Update holds the
// store lock for the whole read-modify-write, which serializes updates
// the same way the Postgres row lock does.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	now    func() time.Time
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]*models.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	created := cloneOrder(order)
	if created.ID == "" {
		created.ID = generateOrderID()
	}
	if created.Customer.ID == "" {
		created.Customer.ID = generateCustomerID()
	}
	assignItemIDs(created.Items)
	now := r.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[created.ID]; exists {
		return nil, errors.ErrConflict
	}
	r.orders[created.ID] = created
	return cloneOrder(created), nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (r *MemoryOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.mu.Lock()
	matched := make([]*models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if matchesFilter(order, filter) {
			matched = append(matched, cloneOrder(order))
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	return matched[start:end], total, nil
}

func (r *MemoryOrderRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}

	order := cloneOrder(stored)
	mutation, err := fn(order)
	if err != nil {
		return nil, err
	}
	if !mutation.Changed {
		return cloneOrder(stored), nil
	}

	if mutation.ItemsReplaced {
		assignItemIDs(order.Items)
	}
	if mutation.CustomerChanged && order.Customer.ID == "" {
		order.Customer.ID = generateCustomerID()
	}
	order.UpdatedAt = r.now()
	r.orders[id] = order

	return cloneOrder(order), nil
}

func matchesFilter(order *models.Order, filter *models.OrderListFilter) bool {
	if filter.Status != nil && order.Status != *filter.Status {
		return false
	}
	if filter.CustomerEmail != "" && !strings.EqualFold(order.Customer.Email, filter.CustomerEmail) {
		return false
	}
	if filter.StartDate != nil && order.CreatedAt.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && order.CreatedAt.After(*filter.EndDate) {
		return false
	}
	return true
}

// MemoryCartStore is an in-process CartStore.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]map[string]int
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]map[string]int)}
}

func (s *MemoryCartStore) Items(ctx context.Context, customerID string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.CartItem, 0, len(s.carts[customerID]))
	for productID, qty := range s.carts[customerID] {
		items = append(items, models.CartItem{ProductID: productID, Quantity: qty})
	}
	sortCartItems(items)
	return items, nil
}

func (s *MemoryCartStore) Add(ctx context.Context, customerID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[customerID]
	if !ok {
		cart = make(map[string]int)
		s.carts[customerID] = cart
	}
	cart[productID] += quantity
	if cart[productID] <= 0 {
		delete(cart, productID)
	}
	return nil
}

func (s *MemoryCartStore) Remove(ctx context.Context, customerID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts[customerID], productID)
	return nil
}

func (s *MemoryCartStore) Clear(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, customerID)
	return nil
}

// MemoryProductCatalog serves a fixed set of products.
type MemoryProductCatalog struct {
	mu       sync.RWMutex
	products map[string]*models.Product
}

func NewMemoryProductCatalog(products ...*models.Product) *MemoryProductCatalog {
	c := &MemoryProductCatalog{products: make(map[string]*models.Product)}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

func (c *MemoryProductCatalog) Put(p *models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *p
	c.products[p.ID] = &cp
}

func (c *MemoryProductCatalog) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}
