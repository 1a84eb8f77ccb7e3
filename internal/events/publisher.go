package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

// EventType represents the type of order event.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderUpdated       EventType = "order.updated"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
)

// OrderEvent represents an order-related event.
type OrderEvent struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	OrderID       string            `json:"order_id"`
	CustomerID    string            `json:"customer_id"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes order events to Kafka.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logging.LoggerV2
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.LoggerV2) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.OrdersTopic,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order created event.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Publishing order created event", logging.Fields{
		"order_id": order.ID,
	})

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypeOrderCreated, order, data)
	event.Metadata["source"] = order.Source
	return p.publish(ctx, event)
}

// PublishOrderUpdated publishes an order update event. totalsRecomputed
// tells consumers whether the stored totals changed.
func (p *KafkaPublisher) PublishOrderUpdated(ctx context.Context, order *models.Order, totalsRecomputed bool) error {
	p.logger.Debug("Publishing order updated event", logging.Fields{
		"order_id":          order.ID,
		"totals_recomputed": totalsRecomputed,
	})

	payload := struct {
		Order            *models.Order `json:"order"`
		TotalsRecomputed bool          `json:"totals_recomputed"`
	}{
		Order:            order,
		TotalsRecomputed: totalsRecomputed,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypeOrderUpdated, order, data)
	return p.publish(ctx, event)
}

// PublishOrderStatusChanged publishes an order status change event.
func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error {
	p.logger.Debug("Publishing order status changed event", logging.Fields{
		"order_id":        order.ID,
		"previous_status": previousStatus,
		"new_status":      order.Status,
	})

	payload := struct {
		Order          *models.Order      `json:"order"`
		PreviousStatus models.OrderStatus `json:"previous_status"`
		NewStatus      models.OrderStatus `json:"new_status"`
	}{
		Order:          order,
		PreviousStatus: previousStatus,
		NewStatus:      order.Status,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypeOrderStatusChanged, order, data)
	return p.publish(ctx, event)
}

// PublishOrderCancelled publishes an order cancellation event.
func (p *KafkaPublisher) PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error {
	p.logger.Debug("Publishing order cancelled event", logging.Fields{
		"order_id": order.ID,
		"reason":   reason,
	})

	payload := struct {
		Order  *models.Order `json:"order"`
		Reason string        `json:"reason"`
	}{
		Order:  order,
		Reason: reason,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypeOrderCancelled, order, data)
	return p.publish(ctx, event)
}

func (p *KafkaPublisher) createEvent(ctx context.Context, eventType EventType, order *models.Order, data []byte) *OrderEvent {
	return &OrderEvent{
		ID:            generateEventID(),
		Type:          eventType,
		OrderID:       order.ID,
		CustomerID:    order.Customer.ID,
		Data:          data,
		Metadata:      map[string]string{"total_amount": order.Total.StringFixed(2)},
		Timestamp:     time.Now().UTC(),
		CorrelationID: middleware.RequestIDFromContext(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *OrderEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		})
		return err
	}

	metrics.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

func generateEventID() string {
	return "evt_" + uuid.NewString()
}
