package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type publishedRecord struct {
	topic   string
	key     string
	value   interface{}
	headers map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	records  []publishedRecord
	failures int
}

func (p *fakePublisher) ProduceJSON(ctx context.Context, topic, key string, v interface{}, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker not available")
	}
	p.records = append(p.records, publishedRecord{topic: topic, key: key, value: v, headers: headers})
	return nil
}

func fastRetry(maxRetries int) *retry.Config {
	return &retry.Config{MaxRetries: maxRetries, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestKafkaNotifier_Send(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, &KafkaNotifierConfig{Topic: "notifications.test", Retry: fastRetry(0)})
	ctx := logger.WithCorrelationID(context.Background(), "req-42")

	err := n.Send(ctx, service.NotificationPaymentConfirmed, "client-1", map[string]any{"payment_id": "p1"})
	require.NoError(t, err)

	require.Len(t, pub.records, 1)
	rec := pub.records[0]
	assert.Equal(t, "notifications.test", rec.topic)
	assert.Equal(t, "client-1", rec.key)
	assert.Equal(t, "payment.confirmed", rec.headers["event_type"])
	assert.Equal(t, "req-42", rec.headers[logger.CorrelationIDField])

	msg, ok := rec.value.(*Notification)
	require.True(t, ok)
	assert.Equal(t, service.NotificationPaymentConfirmed, msg.Kind)
	assert.Equal(t, "p1", msg.Payload["payment_id"])
	assert.Equal(t, msg.ID, rec.headers["event_id"])
}

func TestKafkaNotifier_RetriesTransientErrors(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	n := NewKafkaNotifier(pub, &KafkaNotifierConfig{Retry: fastRetry(3)})

	err := n.Send(context.Background(), service.NotificationBookingCancelled, "client-1", nil)
	require.NoError(t, err)
	assert.Len(t, pub.records, 1)
	assert.Equal(t, "wedding.notifications", pub.records[0].topic)
}

func TestKafkaNotifier_GivesUp(t *testing.T) {
	pub := &fakePublisher{failures: 10}
	n := NewKafkaNotifier(pub, &KafkaNotifierConfig{Retry: fastRetry(1)})

	err := n.Send(context.Background(), service.NotificationBookingRequested, "vendor-1", nil)
	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
	assert.Empty(t, pub.records)
	assert.Equal(t, 8, pub.failures)
}

func TestKafkaNotifier_RequiresRecipient(t *testing.T) {
	pub := &fakePublisher{}
	err := NewKafkaNotifier(pub, nil).Send(context.Background(), service.NotificationBookingRequested, "", nil)
	assert.Error(t, err)
	assert.Empty(t, pub.records)
}

func TestLogNotifier_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	err := NewLogNotifier().Send(context.Background(), service.NotificationBookingRequested, "vendor-1", map[string]any{"booking_id": "b1"})
	require.NoError(t, err)

	entries := logs.FilterMessage("notification.sent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "vendor-1", entries[0].ContextMap()["recipient"])
}
