// Package notification delivers buyer notifications. Rendering and sending
// emails is done by a downstream service reading the notifications topic.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	apptrade "github.com/coopmarket/backend/internal/application/trade"
	"github.com/coopmarket/backend/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaNotifier queues notifications on a Kafka topic keyed by buyer id
type KafkaNotifier struct {
	writer event.MessageWriter
	logger *zap.Logger
}

// NewKafkaNotifier creates a notifier writing through writer
func NewKafkaNotifier(writer event.MessageWriter, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, logger: logger}
}

// Notify queues n
func (n *KafkaNotifier) Notify(ctx context.Context, note apptrade.BuyerNotification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(note.BuyerID.String()),
		Value: payload,
		Time:  note.CreatedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(note.Kind)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write notification %s: %w", note.ID, err)
	}
	return nil
}

// Close closes the writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier only logs notifications. Used when Kafka is disabled.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n
func (n *LogNotifier) Notify(_ context.Context, note apptrade.BuyerNotification) error {
	n.logger.Info("buyer notification",
		zap.String("kind", note.Kind),
		zap.String("buyer_id", note.BuyerID.String()),
		zap.String("order_number", note.OrderNumber),
		zap.String("subject", note.Subject),
	)
	return nil
}

var (
	_ apptrade.BuyerNotifier = (*KafkaNotifier)(nil)
	_ apptrade.BuyerNotifier = (*LogNotifier)(nil)
)
