package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"threadsntrends_back_end/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType = "event-type"

	EventOrderCreated   = "order.created"
	EventWebhookFailure = "webhook.deadletter"
)

// MessageWriter est la partie de kafka.Writer dont on se sert.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, KeepAlive: 30 * time.Second}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Str("topic", topic).Msgf("❌ kafka: "+msg, args...)
		}),
	}
}

// OrderEvents publie les commandes créées pour les consommateurs en aval
// (préparation, statistiques).
type OrderEvents struct {
	writer MessageWriter
}

func NewOrderEvents(w MessageWriter) *OrderEvents {
	return &OrderEvents{writer: w}
}

func (p *OrderEvents) PublishOrderCreated(ctx context.Context, order models.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(order.OrderID),
		Value:   body,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(EventOrderCreated)}},
		Time:    order.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publication order.created: %w", err)
	}
	log.Debug().Str("order_id", order.OrderID).Msg("📦 Événement commande publié")
	return nil
}

func (p *OrderEvents) Close() error {
	return p.writer.Close()
}

// DeadLetterTopic dépose les webhooks en échec sur Kafka pour que le worker
// puisse les rejouer.
type DeadLetterTopic struct {
	writer MessageWriter
}

func NewDeadLetterTopic(w MessageWriter) *DeadLetterTopic {
	return &DeadLetterTopic{writer: w}
}

func (d *DeadLetterTopic) Record(ctx context.Context, dl models.WebhookDeadLetter) error {
	body, err := json.Marshal(dl)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(dl.SessionID),
		Value:   body,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(EventWebhookFailure)}},
		Time:    dl.CreatedAt,
	}
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("dépôt de la lettre morte: %w", err)
	}
	log.Error().
		Str("event_id", dl.EventID).
		Str("session_id", dl.SessionID).
		Str("kind", string(dl.Kind)).
		Int("attempts", dl.Attempts).
		Str("reason", dl.Reason).
		Msg("🚨 Webhook Stripe envoyé en lettre morte (kafka)")
	return nil
}

func (d *DeadLetterTopic) Close() error {
	return d.writer.Close()
}
