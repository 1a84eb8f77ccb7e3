package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/repository"
)

type recordingPublisher struct {
	mu            sync.Mutex
	created       []string
	updated       []bool
	statusChanges []models.OrderStatus
	cancelReasons []string
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, order.ID)
	return nil
}

func (p *recordingPublisher) PublishOrderUpdated(ctx context.Context, order *models.Order, totalsRecomputed bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, totalsRecomputed)
	return nil
}

func (p *recordingPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanges = append(p.statusChanges, previousStatus, order.Status)
	return nil
}

func (p *recordingPublisher) PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelReasons = append(p.cancelReasons, reason)
	return nil
}

type recordingNotifier struct {
	sent chan models.OrderStatus
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan models.OrderStatus, 16)}
}

func (n *recordingNotifier) SendOrderStatusEmail(ctx context.Context, order *models.Order) error {
	n.sent <- order.Status
	return nil
}

func (n *recordingNotifier) wait(t *testing.T) models.OrderStatus {
	t.Helper()
	select {
	case status := <-n.sent:
		return status
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for notification")
		return ""
	}
}

type mapCache struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	gets   int
}

func newMapCache() *mapCache {
	return &mapCache{orders: make(map[string]*models.Order)}
}

func (c *mapCache) Get(ctx context.Context, id string) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.orders[id], nil
}

func (c *mapCache) Set(ctx context.Context, order *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[order.ID] = order
	return nil
}

func (c *mapCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
	return nil
}

type fixture struct {
	repo      *repository.MemoryOrderRepository
	cache     *mapCache
	publisher *recordingPublisher
	notifier  *recordingNotifier
	orders    *OrderService
	carts     *repository.MemoryCartStore
	catalog   *repository.MemoryProductCatalog
	checkout  *CheckoutService
	cart      *CartService
}

func newFixture() *fixture {
	cfg := &config.Config{
		Features: config.FeatureFlags{
			EnableOrderCaching:  true,
			EnableOrderEvents:   true,
			EnableNotifications: true,
		},
	}

	f := &fixture{
		repo:      repository.NewMemoryOrderRepository(),
		cache:     newMapCache(),
		publisher: &recordingPublisher{},
		notifier:  newRecordingNotifier(),
		carts:     repository.NewMemoryCartStore(),
		catalog: repository.NewMemoryProductCatalog(
			&models.Product{ID: "prd_widget", Name: "Widget", SellingPrice: d("100"), MRP: d("120")},
			&models.Product{ID: "prd_mug", Name: "Mug", MRP: d("50")},
			&models.Product{ID: "prd_kurta", Name: "Kurta", SellingPrice: d("200"), GST: d("5")},
			&models.Product{ID: "prd_shipping", Name: "Shipping", SellingPrice: d("50")},
		),
	}
	f.orders = NewOrderService(f.repo, f.cache, nil, f.publisher, f.notifier, cfg)
	f.checkout = NewCheckoutService(f.orders, f.catalog, f.carts)
	f.cart = NewCartService(f.carts, f.catalog, f.orders.Calculator())
	return f
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", field, got.String(), want)
	}
}

func customer() models.Customer {
	return models.Customer{Name: "Asha", Email: "asha@example.com", Phone: "9999999999"}
}
