package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventType tags a stock event on the wire.
type EventType string

const (
	EventStockReserved  EventType = "stock.reserved"
	EventStockReleased  EventType = "stock.released"
	EventStockExpired   EventType = "stock.expired"
	EventStockFulfilled EventType = "stock.fulfilled"
	EventStockAdjusted  EventType = "stock.adjusted"
)

// StockEvent is published after a stock mutation commits. Consumers
// (order flows, analytics) must treat it as at-least-once.
type StockEvent struct {
	EventType      EventType `json:"event_type"`
	ProductID      string    `json:"product_id"`
	Quantity       int       `json:"quantity"`
	Reference      string    `json:"reference,omitempty"`
	Actor          string    `json:"actor,omitempty"`
	PhysicalStock  int       `json:"physical_stock"`
	ReservedStock  int       `json:"reserved_stock"`
	AvailableStock int       `json:"available_stock"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher is the minimal interface services depend on.
type Publisher interface {
	PublishStockEvent(ctx context.Context, evt StockEvent) error
}

// Producer publishes stock events to Kafka, keyed by product so per-product
// ordering is preserved within a partition.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a Kafka producer for the given brokers and topic.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	logger.Info("Kafka producer initialized",
		zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Producer{writer: w, logger: logger}
}

func (p *Producer) PublishStockEvent(ctx context.Context, evt StockEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.ProductID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish stock event",
			zap.String("event_type", string(evt.EventType)),
			zap.String("product_id", evt.ProductID),
			zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
