package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/config"
	"storefront/logging"
	"storefront/models"
	"storefront/services"
)

var _ services.OrderNotifier = (*KafkaPublisher)(nil)

type EventType string

const EventTypeOrderConfirmed EventType = "order.confirmed"

// OrderEvent is the envelope written to the orders topic, one per order.
type OrderEvent struct {
	ID            string              `json:"id"`
	Type          EventType           `json:"type"`
	OrderID       int64               `json:"order_id"`
	UserID        int64               `json:"user_id"`
	Data          models.OrderSummary `json:"data"`
	Timestamp     time.Time           `json:"timestamp"`
	CorrelationID string              `json:"correlation_id,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher announces confirmed orders on Kafka.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
	now    func() time.Time
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OrdersTopic,
		Balancer:               &kafka.LeastBytes{},
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(writer, cfg.OrdersTopic, logger)
}

func newPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, logger: logger.Named("kafka"), now: time.Now}
}

func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// NotifyCheckout writes every order of the receipt in one batch.
func (p *KafkaPublisher) NotifyCheckout(ctx context.Context, receipt services.CheckoutReceipt) error {
	if len(receipt.Orders) == 0 {
		return nil
	}

	correlationID := logging.RequestIDFromContext(ctx)
	msgs := make([]kafka.Message, 0, len(receipt.Orders))
	for _, order := range receipt.Orders {
		event := OrderEvent{
			ID:            uuid.NewString(),
			Type:          EventTypeOrderConfirmed,
			OrderID:       order.OrderID,
			UserID:        receipt.AccountID,
			Data:          order,
			Timestamp:     p.now().UTC(),
			CorrelationID: correlationID,
		}
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal order event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(order.OrderID, 10)),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.Type)},
				{Key: "event_id", Value: []byte(event.ID)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to publish order events",
			zap.String("topic", p.topic),
			zap.Int64("account_id", receipt.AccountID),
			zap.Int("events", len(msgs)),
			zap.Error(err))
		return fmt.Errorf("publish order events: %w", err)
	}

	p.logger.Info("order events published",
		zap.String("topic", p.topic),
		zap.Int64("account_id", receipt.AccountID),
		zap.Int("events", len(msgs)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
