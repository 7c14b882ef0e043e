package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func newStubEvent() *stubEvent {
	return &stubEvent{BaseDomainEvent: NewBaseDomainEvent("StubEvent", "Order", uuid.New())}
}

func TestNewOutboxEntry(t *testing.T) {
	event := newStubEvent()
	entry := NewOutboxEntry(event, []byte(`{"a":1}`))

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, "StubEvent", entry.EventType)
	assert.Equal(t, event.AggregateID(), entry.AggregateID)
	assert.Equal(t, "Order", entry.AggregateType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Zero(t, entry.RetryCount)
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	t.Run("pending and failed entries can be claimed", func(t *testing.T) {
		for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusFailed} {
			entry := &OutboxEntry{Status: status}
			require.NoError(t, entry.MarkProcessing())
			assert.Equal(t, OutboxStatusProcessing, entry.Status)
		}
	})

	t.Run("other statuses are rejected", func(t *testing.T) {
		for _, status := range []OutboxStatus{OutboxStatusProcessing, OutboxStatusSent, OutboxStatusDead} {
			entry := &OutboxEntry{Status: status}
			assert.Error(t, entry.MarkProcessing())
		}
	})
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("schedules exponential backoff", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 5}

		before := time.Now()
		entry.MarkFailed("broker down")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.Equal(t, "broker down", entry.LastError)
		require.NotNil(t, entry.NextRetryAt)
		assert.True(t, entry.NextRetryAt.After(before))
		assert.True(t, entry.CanRetry())

		entry.MarkFailed("broker down")
		assert.True(t, entry.NextRetryAt.Sub(before) >= 2*time.Second)
	})

	t.Run("becomes dead after max retries", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, RetryCount: 4, MaxRetries: 5}
		entry.MarkFailed("still down")

		assert.Equal(t, OutboxStatusDead, entry.Status)
		assert.True(t, entry.IsDead())
		assert.False(t, entry.CanRetry())
	})
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusProcessing}
	entry.MarkSent()

	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	entry := NewOutboxEntry(newStubEvent(), []byte(`{}`))
	assert.Error(t, entry.ResetForRetry())

	for entry.Status != OutboxStatusDead {
		entry.MarkFailed("broker down")
	}
	require.NoError(t, entry.ResetForRetry())
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)
	assert.Empty(t, entry.LastError)
	assert.Nil(t, entry.NextRetryAt)
}
