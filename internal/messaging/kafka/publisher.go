package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialagro/social-agro-backend/internal/core/events"
)

// Publisher forwards reconciled payments from the in-process bus to a Kafka
// topic so downstream services can react to settlements.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000
	return config
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("kafka publisher initialized", "brokers", brokers, "topic", topic)

	return NewPublisherWithProducer(producer, topic, logger), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

type paymentMessage struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	OccurredAt  string `json:"occurred_at"`
	PaymentID   int64  `json:"id"`
	ClientID    int64  `json:"cliente_id"`
	MPPaymentID string `json:"mp_payment_id"`
	Status      string `json:"status"`
	AmountCents *int64 `json:"valor_centavos"`
	PaidAt      string `json:"pago_em,omitempty"`
}

func (p *Publisher) HandlePaymentReconciled(ctx context.Context, event events.Event) error {
	reconciled, ok := event.(*events.PaymentReconciledEvent)
	if !ok {
		return fmt.Errorf("expected PaymentReconciledEvent, got %T", event)
	}
	return p.PublishPaymentReconciled(ctx, reconciled)
}

func (p *Publisher) PublishPaymentReconciled(ctx context.Context, event *events.PaymentReconciledEvent) error {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish.payment_reconciled",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("event.type", event.EventType()),
			attribute.String("event.id", event.EventID()),
			attribute.String("payment.mp_id", event.MPPaymentID),
			attribute.String("payment.status", event.Status),
		),
	)
	defer span.End()

	msg := paymentMessage{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		OccurredAt:  event.OccurredAt().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		PaymentID:   event.PaymentID,
		ClientID:    event.ClientID,
		MPPaymentID: event.MPPaymentID,
		Status:      event.Status,
		AmountCents: event.AmountCents,
	}
	if event.PaidAt != nil {
		msg.PaidAt = event.PaidAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(event.EventType())},
		{Key: []byte("event_id"), Value: []byte(event.EventID())},
	}
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}

	key := event.MPPaymentID
	if key == "" {
		key = strconv.FormatInt(event.PaymentID, 10)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send message")
		p.logger.Error("failed to publish payment event",
			"error", err,
			"topic", p.topic,
			"mp_payment_id", event.MPPaymentID)
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "")

	p.logger.Info("payment event published",
		"event_id", event.EventID(),
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"mp_payment_id", event.MPPaymentID,
		"status", event.Status)

	return nil
}

func (p *Publisher) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentReconciled, p.HandlePaymentReconciled)
}

func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
