package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type Kind string

const (
	KindOrderConfirmation      Kind = "order_confirmation"
	KindMerchantNewOrder       Kind = "merchant_new_order"
	KindOrderStatusUpdate      Kind = "order_status_update"
	KindOrderShipped           Kind = "order_shipped"
	KindOrderCompleted         Kind = "order_completed"
	KindMerchantOrderCancelled Kind = "merchant_order_cancelled"
	KindProductCreated         Kind = "product_created"
)

type Message struct {
	Kind      Kind              `json:"kind"`
	OrderID   uuid.UUID         `json:"order_id"`
	Recipient string            `json:"recipient"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Enqueuer is the side-channel the checkout and settlement paths use.
// Calls never block and never fail the caller.
type Enqueuer interface {
	Enqueue(kind Kind, orderID uuid.UUID, recipient string, extra map[string]string)
}

// Dispatcher publishes notification messages to Kafka from a background
// worker. Delivery is at-least-once with a small bounded retry; a slow or
// dead broker never blocks the request path.
type Dispatcher struct {
	writer *kafka.Writer
	queue  chan Message
	log    *slog.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

const (
	queueDepth     = 256
	maxAttempts    = 3
	initialBackoff = 250 * time.Millisecond
	publishTimeout = 5 * time.Second
)

func New(brokers []string, topic string, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		queue: make(chan Message, queueDepth),
		log:   log,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) Enqueue(kind Kind, orderID uuid.UUID, recipient string, extra map[string]string) {
	msg := Message{Kind: kind, OrderID: orderID, Recipient: recipient, Extra: extra}
	select {
	case d.queue <- msg:
	default:
		d.log.Error("notification queue full, dropping message", "kind", kind, "order_id", orderID)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.publish(msg)
	}
}

func (d *Dispatcher) publish(msg Message) {
	value, err := json.Marshal(msg)
	if err != nil {
		d.log.Error("notification marshal failed", "kind", msg.Kind, "error", err)
		return
	}

	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = d.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(msg.OrderID.String()),
			Value: value,
		})
		cancel()
		if err == nil {
			return
		}
		d.log.Warn("notification publish failed",
			"kind", msg.Kind, "order_id", msg.OrderID, "attempt", attempt, "error", err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	d.log.Error("notification dropped after retries", "kind", msg.Kind, "order_id", msg.OrderID)
}

func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
	return d.writer.Close()
}
