package event

import (
	"context"
	"errors"
	"testing"

	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	return m.Called().Error(0)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_Handle(t *testing.T) {
	writer := new(MockMessageWriter)
	serializer := NewEventSerializer()
	publisher := NewKafkaPublisher(writer, "coopmarket.orders", serializer, zap.NewNop())
	event := newCancelledEvent()

	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil)

	require.NoError(t, publisher.Handle(context.Background(), event))

	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, event.OrderID.String(), string(msg.Key))
	assert.Equal(t, event.EventID().String(), header(msg, "event_id"))
	assert.Equal(t, trade.EventTypeOrderCancelled, header(msg, "event_type"))

	decoded, err := serializer.Deserialize(trade.EventTypeOrderCancelled, msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.OrderNumber, decoded.(*trade.OrderCancelledEvent).OrderNumber)
}

func TestKafkaPublisher_HandleError(t *testing.T) {
	writer := new(MockMessageWriter)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	err := NewKafkaPublisher(writer, "coopmarket.orders", NewEventSerializer(), zap.NewNop()).
		Handle(context.Background(), newCancelledEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestKafkaPublisher_EventTypes(t *testing.T) {
	serializer := NewEventSerializer()

	all := NewKafkaPublisher(new(MockMessageWriter), "coopmarket.orders", serializer, zap.NewNop())
	assert.ElementsMatch(t, serializer.RegisteredTypes(), all.EventTypes())

	some := NewKafkaPublisher(new(MockMessageWriter), "coopmarket.orders", serializer, zap.NewNop(), trade.EventTypeOrderConfirmed)
	assert.Equal(t, []string{trade.EventTypeOrderConfirmed}, some.EventTypes())
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "order-events"})
	defer w.Close()

	assert.Equal(t, "order-events", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
