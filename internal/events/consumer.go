package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	PaymentEventCompleted PaymentEventType = "payment.completed"
	PaymentEventFailed    PaymentEventType = "payment.failed"
)

// PaymentEvent represents a payment-related event.
type PaymentEvent struct {
	ID        string           `json:"id"`
	Type      PaymentEventType `json:"type"`
	PaymentID string           `json:"payment_id"`
	OrderID   string           `json:"order_id"`
	Status    string           `json:"status"`
	Data      json.RawMessage  `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// OrderStatusUpdater is the order service surface payment events drive.
type OrderStatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, id string, req *models.UpdateOrderStatusRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, id string, reason string) (*models.Order, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer consumes payment events from Kafka.
type KafkaConsumer struct {
	reader   messageReader
	orders   OrderStatusUpdater
	logger   *logging.LoggerV2
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKafkaConsumer creates a new Kafka-based event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, orders OrderStatusUpdater, logger *logging.LoggerV2) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaConsumer{
		reader: reader,
		orders: orders,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start consumes events until ctx is done or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					c.logger.Info("Kafka consumer stopped")
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer. It is safe to call more than once.
func (c *KafkaConsumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.reader.Close()
	})
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	switch event.Type {
	case PaymentEventCompleted:
		c.handlePaymentCompleted(ctx, &event)
	case PaymentEventFailed:
		c.handlePaymentFailed(ctx, &event)
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
	}
}

func (c *KafkaConsumer) handlePaymentCompleted(ctx context.Context, event *PaymentEvent) {
	c.logger.Info("Handling payment completed event", logging.Fields{
		"payment_id": event.PaymentID,
		"order_id":   event.OrderID,
	})

	// Prepaid orders are accepted once paid
	req := &models.UpdateOrderStatusRequest{
		Status: models.OrderStatusAccepted,
		Notes:  "Payment completed via event",
	}

	if _, err := c.orders.UpdateOrderStatus(ctx, event.OrderID, req); err != nil {
		c.logger.Error("Failed to update order status", logging.Fields{
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
	}
}

func (c *KafkaConsumer) handlePaymentFailed(ctx context.Context, event *PaymentEvent) {
	c.logger.Info("Handling payment failed event", logging.Fields{
		"payment_id": event.PaymentID,
		"order_id":   event.OrderID,
	})

	if _, err := c.orders.CancelOrder(ctx, event.OrderID, "Payment failed"); err != nil {
		c.logger.Error("Failed to cancel order", logging.Fields{
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
	}
}
