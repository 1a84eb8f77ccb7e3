package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher(w *fakeWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: "orders", logger: logging.NewLoggerV2("test")}
}

func testOrder() *models.Order {
	return &models.Order{
		ID:       "ord_1",
		Customer: models.Customer{ID: "cus_1", Email: "asha@example.com"},
		Status:   models.OrderStatusAccepted,
		Total:    decimal.RequireFromString("130"),
		Source:   models.OrderSourceStorefront,
	}
}

func decodeEvent(t *testing.T, msg kafka.Message) OrderEvent {
	t.Helper()
	var event OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	return event
}

func TestKafkaPublisher_PublishOrderCreated(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)
	ctx := middleware.WithRequestID(context.Background(), "req-42")

	if err := p.PublishOrderCreated(ctx, testOrder()); err != nil {
		t.Fatalf("PublishOrderCreated() error = %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("len(messages) = %d, want 1", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != "ord_1" {
		t.Errorf("Key = %s, want ord_1", msg.Key)
	}

	event := decodeEvent(t, msg)
	if event.Type != EventTypeOrderCreated {
		t.Errorf("Type = %s, want %s", event.Type, EventTypeOrderCreated)
	}
	if event.CorrelationID != "req-42" {
		t.Errorf("CorrelationID = %s, want req-42", event.CorrelationID)
	}
	if event.CustomerID != "cus_1" {
		t.Errorf("CustomerID = %s, want cus_1", event.CustomerID)
	}
	if event.Metadata["total_amount"] != "130.00" {
		t.Errorf("Metadata[total_amount] = %s, want 130.00", event.Metadata["total_amount"])
	}
	if event.Metadata["source"] != models.OrderSourceStorefront {
		t.Errorf("Metadata[source] = %s, want storefront", event.Metadata["source"])
	}
}

func TestKafkaPublisher_PublishStatusChanged(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	if err := p.PublishOrderStatusChanged(context.Background(), testOrder(), models.OrderStatusPending); err != nil {
		t.Fatalf("PublishOrderStatusChanged() error = %v", err)
	}

	event := decodeEvent(t, w.messages[0])
	var payload struct {
		PreviousStatus models.OrderStatus `json:"previous_status"`
		NewStatus      models.OrderStatus `json:"new_status"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if payload.PreviousStatus != models.OrderStatusPending || payload.NewStatus != models.OrderStatusAccepted {
		t.Errorf("payload = %+v, want pending -> accepted", payload)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: stderrors.New("broker down")}
	p := newTestPublisher(w)

	if err := p.PublishOrderUpdated(context.Background(), testOrder(), true); err == nil {
		t.Error("Expected write error to be returned")
	}
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	if err := newTestPublisher(w).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !w.closed {
		t.Error("Expected writer to be closed")
	}
}

type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   chan struct{}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, stderrors.New("reader closed")
	}
}

func (r *fakeReader) Close() error {
	close(r.closed)
	return nil
}

type recordingUpdater struct {
	mu        sync.Mutex
	statuses  map[string]models.OrderStatus
	cancelled map[string]string
	done      chan struct{}
	expect    int
	seen      int
}

func newRecordingUpdater(expect int) *recordingUpdater {
	return &recordingUpdater{
		statuses:  make(map[string]models.OrderStatus),
		cancelled: make(map[string]string),
		done:      make(chan struct{}),
		expect:    expect,
	}
}

func (u *recordingUpdater) record() {
	u.seen++
	if u.seen == u.expect {
		close(u.done)
	}
}

func (u *recordingUpdater) UpdateOrderStatus(ctx context.Context, id string, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statuses[id] = req.Status
	u.record()
	return &models.Order{ID: id, Status: req.Status}, nil
}

func (u *recordingUpdater) CancelOrder(ctx context.Context, id string, reason string) (*models.Order, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cancelled[id] = reason
	u.record()
	return &models.Order{ID: id, Status: models.OrderStatusCancelled}, nil
}

func paymentMessage(t *testing.T, eventType PaymentEventType, orderID string) kafka.Message {
	t.Helper()
	data, err := json.Marshal(PaymentEvent{ID: "pe_" + orderID, Type: eventType, OrderID: orderID})
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Value: data}
}

func TestKafkaConsumer_HandlesPaymentEvents(t *testing.T) {
	reader := &fakeReader{
		messages: []kafka.Message{
			paymentMessage(t, PaymentEventCompleted, "ord_paid"),
			{Value: []byte("not json")},
			paymentMessage(t, "payment.refunded", "ord_ignored"),
			paymentMessage(t, PaymentEventFailed, "ord_failed"),
		},
		closed: make(chan struct{}),
	}
	updater := newRecordingUpdater(2)
	c := &KafkaConsumer{reader: reader, orders: updater, logger: logging.NewLoggerV2("test"), stopCh: make(chan struct{})}

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()

	select {
	case <-updater.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for events to be handled")
	}
	c.Stop()
	c.Stop()

	if err := <-errCh; err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if updater.statuses["ord_paid"] != models.OrderStatusAccepted {
		t.Errorf("status for ord_paid = %s, want accepted", updater.statuses["ord_paid"])
	}
	if updater.cancelled["ord_failed"] != "Payment failed" {
		t.Errorf("cancel reason = %q, want Payment failed", updater.cancelled["ord_failed"])
	}
	if _, ok := updater.statuses["ord_ignored"]; ok {
		t.Error("Expected unknown event type to be ignored")
	}
}
