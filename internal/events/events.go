package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"karavanCanteen/models"

	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is an order lifecycle notification. From is empty for order.created.
type Event struct {
	Type        string             `json:"type"`
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      int64              `json:"user_id"`
	From        models.OrderStatus `json:"from,omitempty"`
	To          models.OrderStatus `json:"to"`
	ActorID     int64              `json:"actor_id"`
	At          time.Time          `json:"at"`
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events as JSON keyed by order id, so one order's events stay on
// one partition in order.
type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: writer}
}

// NewKafkaWriter builds a writer for broker/topic.
func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.OrderID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = Noop{}
)
