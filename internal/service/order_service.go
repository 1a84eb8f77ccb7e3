package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/repository"
)

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderUpdated(ctx context.Context, order *models.Order, totalsRecomputed bool) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error
	PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error
}

// Notifier tells customers about their order.
type Notifier interface {
	SendOrderStatusEmail(ctx context.Context, order *models.Order) error
}

// OrderService handles order business logic.
type OrderService struct {
	orderRepo      repository.OrderRepository
	orderCache     repository.OrderCache
	calculator     *pricing.Calculator
	eventPublisher EventPublisher
	notifier       Notifier
	config         *config.Config
	logger         *logging.LoggerV2
}

// NewOrderService creates a new order service. cache, publisher and
// notifier may be nil; the matching feature is then skipped.
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	calculator *pricing.Calculator,
	eventPublisher EventPublisher,
	notifier Notifier,
	cfg *config.Config,
) *OrderService {
	if calculator == nil {
		calculator = pricing.NewCalculator(nil)
	}
	return &OrderService{
		orderRepo:      orderRepo,
		orderCache:     orderCache,
		calculator:     calculator,
		eventPublisher: eventPublisher,
		notifier:       notifier,
		config:         cfg,
		logger:         logging.NewLoggerV2("order-service"),
	}
}

// Calculator returns the calculator used for every totals computation.
func (s *OrderService) Calculator() *pricing.Calculator {
	return s.calculator
}

// CreateOrder creates an admin-entered order. Charge lines among the items
// are folded into the totals and the client-declared total is ignored.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	s.logger.Info("Creating order", logging.Fields{
		"customer_email": req.Customer.Email,
		"item_count":     len(req.Items),
	})

	if err := ValidateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	lines, items := splitItems(s.calculator, req.Items)
	totals := s.calculator.Calculate(lines, req.Charges(), pricing.Options{})
	recordTotals(s.logger, pathCreate, totals)

	if req.ClientTotal != nil && !pricing.Round(*req.ClientTotal).Equal(totals.Rounded().Total) {
		s.logger.Debug("Ignoring client total on create", logging.Fields{
			"client_total":   req.ClientTotal.String(),
			"computed_total": totals.Rounded().Total.String(),
		})
	}

	order := &models.Order{
		Customer:        req.Customer,
		Status:          models.OrderStatusPending,
		PaymentMethod:   models.NormalizePaymentMethod(string(req.PaymentMethod)),
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		Notes:           SanitizeOrderNotes(req.Notes),
		Source:          models.OrderSourceAdmin,
	}
	order.ApplyTotals(totals)

	return s.persistNewOrder(ctx, order)
}

// persistNewOrder stores a fully priced order and runs the creation side
// effects shared by admin and storefront orders.
func (s *OrderService) persistNewOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		s.logger.Error("Failed to create order", logging.Fields{
			"customer_email": order.Customer.Email,
			"error":          err.Error(),
		})
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues(created.Source).Inc()
	metrics.OrderTotal.WithLabelValues(created.Source).Observe(created.Total.InexactFloat64())

	s.cacheOrder(ctx, created)

	if s.eventsEnabled() {
		if err := s.eventPublisher.PublishOrderCreated(ctx, created); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_id": created.ID,
				"error":    err.Error(),
			})
		}
	}

	s.notify(created)

	s.logger.Info("Order created successfully", logging.Fields{
		"order_id": created.ID,
		"source":   created.Source,
		"total":    created.Total.StringFixed(pricing.CurrencyPlaces),
	})

	return created, nil
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.logger.Debug("Getting order", logging.Fields{"order_id": id})

	// Check cache first
	if s.cachingEnabled() {
		if order, err := s.orderCache.Get(ctx, id); err == nil && order != nil {
			s.logger.Debug("Order found in cache", logging.Fields{"order_id": id})
			return order, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.ErrNotFound
	}

	// Cache for next time
	s.cacheOrder(ctx, order)

	return order, nil
}

// ListOrders retrieves orders based on filter criteria.
func (s *OrderService) ListOrders(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	s.logger.Debug("Listing orders", logging.Fields{
		"customer_email": filter.CustomerEmail,
		"status":         filter.Status,
	})

	if err := ValidateOrderListFilter(filter); err != nil {
		return nil, 0, err
	}

	// Set defaults
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	return s.orderRepo.List(ctx, filter)
}

// UpdateOrder applies a partial update. Totals are recomputed only when
// items, GST percent or delivery charge are part of the request; charges
// that are not supplied fall back to the values stored on the order.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req *models.UpdateOrderRequest) (*models.Order, error) {
	s.logger.Info("Updating order", logging.Fields{
		"order_id":      id,
		"items_present": req.ItemsPresent(),
	})

	if err := ValidateUpdateOrderRequest(req); err != nil {
		return nil, err
	}

	recompute := pricing.NeedsRecompute(req.ItemsPresent(), req.Charges())

	var previousStatus models.OrderStatus
	var changed bool

	order, err := s.orderRepo.Update(ctx, id, func(order *models.Order) (repository.Mutation, error) {
		previousStatus = order.Status
		m, err := s.applyUpdate(order, req, recompute)
		changed = m.Changed
		return m, err
	})
	if err != nil {
		return nil, err
	}

	if !recompute {
		metrics.RecomputeSkipped.Inc()
	}

	if !changed {
		return order, nil
	}

	s.invalidate(ctx, order.ID)

	if s.eventsEnabled() {
		if err := s.eventPublisher.PublishOrderUpdated(ctx, order, recompute); err != nil {
			s.logger.Error("Failed to publish order updated event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
		if order.Status != previousStatus {
			s.publishStatusChanged(ctx, order, previousStatus)
		}
	}

	if order.Status != previousStatus {
		s.notify(order)
	}

	return order, nil
}

// applyUpdate mutates order in place from req. It runs under the
// repository's row lock, so order holds the current stored values.
func (s *OrderService) applyUpdate(order *models.Order, req *models.UpdateOrderRequest, recompute bool) (repository.Mutation, error) {
	m := repository.Mutation{}

	if req.Customer != nil && mergeCustomer(&order.Customer, req.Customer) {
		m.Changed = true
		m.CustomerChanged = true
	}

	if req.Status != nil {
		status, _ := models.ParseOrderStatus(string(*req.Status))
		if status != order.Status {
			if !isValidStatusTransition(order.Status, status) {
				return m, invalidTransition(order.Status, status)
			}
			order.Status = status
			m.Changed = true
		}
	}

	if req.PaymentMethod != nil {
		method := models.NormalizePaymentMethod(string(*req.PaymentMethod))
		if method != order.PaymentMethod {
			order.PaymentMethod = method
			m.Changed = true
		}
	}

	if req.ShippingAddress != nil && *req.ShippingAddress != order.ShippingAddress {
		order.ShippingAddress = *req.ShippingAddress
		m.Changed = true
	}

	if req.Notes != nil {
		if notes := SanitizeOrderNotes(*req.Notes); notes != order.Notes {
			order.Notes = notes
			m.Changed = true
		}
	}

	if !recompute {
		return m, nil
	}

	lines := order.Lines()
	if req.Items != nil {
		var items []models.OrderItem
		lines, items = splitItems(s.calculator, *req.Items)
		order.Items = items
		m.ItemsReplaced = true
	}

	totals := s.calculator.Calculate(lines, req.Charges(), pricing.Options{
		IsUpdate: true,
		Stored:   order.StoredCharges(),
	})
	recordTotals(s.logger, pathUpdate, totals)
	order.ApplyTotals(totals)
	m.Changed = true

	return m, nil
}

// UpdateOrderStatus moves an order to a new status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	s.logger.Info("Updating order status", logging.Fields{
		"order_id":   id,
		"new_status": req.Status,
	})

	if err := ValidateUpdateOrderStatusRequest(req); err != nil {
		return nil, err
	}
	newStatus, _ := models.ParseOrderStatus(string(req.Status))

	var previousStatus models.OrderStatus
	order, err := s.orderRepo.Update(ctx, id, func(order *models.Order) (repository.Mutation, error) {
		previousStatus = order.Status

		// Validate status transition
		if !isValidStatusTransition(order.Status, newStatus) {
			return repository.Mutation{}, invalidTransition(order.Status, newStatus)
		}

		order.Status = newStatus
		if req.Notes != "" {
			order.Notes = SanitizeOrderNotes(req.Notes)
		}
		return repository.Mutation{Changed: true}, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	if s.eventsEnabled() {
		s.publishStatusChanged(ctx, order, previousStatus)
	}

	s.notify(order)

	return order, nil
}

// CancelOrder cancels an order that has not been dispatched yet.
func (s *OrderService) CancelOrder(ctx context.Context, id string, reason string) (*models.Order, error) {
	s.logger.Info("Cancelling order", logging.Fields{
		"order_id": id,
		"reason":   reason,
	})

	if err := ValidateCancellationReason(reason); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.Update(ctx, id, func(order *models.Order) (repository.Mutation, error) {
		// Check if cancellation is allowed
		if !order.CanCancel() {
			return repository.Mutation{}, errors.NewValidationError("status", "order cannot be cancelled in current state")
		}

		order.Status = models.OrderStatusCancelled
		if reason = strings.TrimSpace(reason); reason != "" {
			order.Notes = SanitizeOrderNotes(reason)
		}
		return repository.Mutation{Changed: true}, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	if s.eventsEnabled() {
		if err := s.eventPublisher.PublishOrderCancelled(ctx, order, reason); err != nil {
			s.logger.Error("Failed to publish order cancelled event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	s.notify(order)

	return order, nil
}

func (s *OrderService) publishStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) {
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, previousStatus); err != nil {
		s.logger.Error("Failed to publish status change event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *OrderService) cachingEnabled() bool {
	return s.orderCache != nil && s.config.Features.EnableOrderCaching
}

func (s *OrderService) eventsEnabled() bool {
	return s.eventPublisher != nil && s.config.Features.EnableOrderEvents
}

func (s *OrderService) cacheOrder(ctx context.Context, order *models.Order) {
	if !s.cachingEnabled() {
		return
	}
	if err := s.orderCache.Set(ctx, order); err != nil {
		s.logger.Error("Failed to cache order", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *OrderService) invalidate(ctx context.Context, id string) {
	if !s.cachingEnabled() {
		return
	}
	if err := s.orderCache.Delete(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate cached order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
	}
}

func (s *OrderService) notify(order *models.Order) {
	if s.notifier == nil || !s.config.Features.EnableNotifications {
		return
	}
	go s.sendStatusEmail(context.Background(), order)
}

func (s *OrderService) sendStatusEmail(ctx context.Context, order *models.Order) {
	if err := s.notifier.SendOrderStatusEmail(ctx, order); err != nil {
		s.logger.Error("Failed to send order status email", logging.Fields{
			"order_id": order.ID,
			"status":   order.Status,
			"error":    err.Error(),
		})
	}
}

// mergeCustomer copies the non-empty fields of update onto customer and
// reports whether anything changed.
func mergeCustomer(customer, update *models.Customer) bool {
	before := *customer
	if update.Name != "" {
		customer.Name = update.Name
	}
	if update.Email != "" {
		customer.Email = update.Email
	}
	if update.Phone != "" {
		customer.Phone = update.Phone
	}
	return *customer != before
}

func trimName(name string) string {
	return strings.TrimSpace(name)
}

func invalidTransition(from, to models.OrderStatus) error {
	return errors.NewValidationError("status", fmt.Sprintf(
		"invalid status transition from %s to %s",
		from,
		to,
	))
}

func isValidStatusTransition(from, to models.OrderStatus) bool {
	validTransitions := map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending:    {models.OrderStatusAccepted, models.OrderStatusRejected, models.OrderStatusCancelled},
		models.OrderStatusAccepted:   {models.OrderStatusDispatched, models.OrderStatusCancelled},
		models.OrderStatusDispatched: {models.OrderStatusDelivered},
		models.OrderStatusDelivered:  {models.OrderStatusCompleted},
		models.OrderStatusCompleted:  {},
		models.OrderStatusCancelled:  {},
		models.OrderStatusRejected:   {},
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}
