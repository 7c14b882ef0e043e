package event

import (
	"context"
	"fmt"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/infrastructure/telemetry"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds the broker settings of the publisher
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaPublisher forwards relayed events to a Kafka topic so that the email
// and document collaborators can consume them. Messages are keyed by
// aggregate id, so the events of one order keep their order within a
// partition.
type KafkaPublisher struct {
	writer     MessageWriter
	serializer *EventSerializer
	eventTypes []string
	topic      string
	logger     *zap.Logger
}

// NewKafkaWriter builds a synchronous writer that waits for all in-sync replicas
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher creates a publisher for the given event types
func NewKafkaPublisher(writer MessageWriter, topic string, serializer *EventSerializer, logger *zap.Logger, eventTypes ...string) *KafkaPublisher {
	if len(eventTypes) == 0 {
		eventTypes = serializer.RegisteredTypes()
	}
	return &KafkaPublisher{
		writer:     writer,
		serializer: serializer,
		eventTypes: eventTypes,
		topic:      topic,
		logger:     logger,
	}
}

// EventTypes returns the forwarded event types
func (p *KafkaPublisher) EventTypes() []string {
	return p.eventTypes
}

// Handle writes the event to Kafka. A failure is returned so the outbox
// relay retries the entry.
func (p *KafkaPublisher) Handle(ctx context.Context, event shared.DomainEvent) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "kafka.publish "+event.EventType(), trace.SpanKindProducer,
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", p.topic),
		attribute.String("event.id", event.EventID().String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	payload, err := p.serializer.Serialize(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID().String())},
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "aggregate_type", Value: []byte(event.AggregateType())},
		},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", event.EventType(), err)
	}

	p.logger.Debug("event forwarded to kafka",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ shared.EventHandler = (*KafkaPublisher)(nil)
