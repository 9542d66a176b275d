package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/retry"
	"go.uber.org/zap"
)

// Publisher is the subset of the Kafka producer used for notifications
type Publisher interface {
	ProduceJSON(ctx context.Context, topic, key string, v interface{}, headers map[string]string) error
}

// Notification is the record published for each outbound notification
type Notification struct {
	ID         string                   `json:"id"`
	Kind       service.NotificationKind `json:"kind"`
	Recipient  string                   `json:"recipient"`
	Payload    map[string]any           `json:"payload"`
	OccurredAt time.Time                `json:"occurred_at"`
}

// KafkaNotifierConfig contains configuration for the Kafka notifier
type KafkaNotifierConfig struct {
	Topic       string
	ServiceName string
	Retry       *retry.Config
}

// KafkaNotifier publishes notifications for a downstream delivery service.
// Records are keyed by recipient so one user's notifications stay ordered.
type KafkaNotifier struct {
	publisher   Publisher
	topic       string
	serviceName string
	retry       *retry.Config
}

// NewKafkaNotifier creates a notifier on top of publisher
func NewKafkaNotifier(publisher Publisher, cfg *KafkaNotifierConfig) *KafkaNotifier {
	n := &KafkaNotifier{
		publisher:   publisher,
		topic:       "wedding.notifications",
		serviceName: "wedding-venue-booking",
		retry: &retry.Config{
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}
	if cfg != nil {
		if cfg.Topic != "" {
			n.topic = cfg.Topic
		}
		if cfg.ServiceName != "" {
			n.serviceName = cfg.ServiceName
		}
		if cfg.Retry != nil {
			n.retry = cfg.Retry
		}
	}
	return n
}

// Send publishes one notification, retrying transient broker errors
func (n *KafkaNotifier) Send(ctx context.Context, kind service.NotificationKind, recipient string, payload map[string]any) error {
	if recipient == "" {
		return fmt.Errorf("notification %s has no recipient", kind)
	}

	msg := &Notification{
		ID:         uuid.New().String(),
		Kind:       kind,
		Recipient:  recipient,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	headers := map[string]string{
		"event_type":   string(kind),
		"event_id":     msg.ID,
		"source":       n.serviceName,
		"content_type": "application/json",
	}
	if id := logger.CorrelationID(ctx); id != "" {
		headers[logger.CorrelationIDField] = id
	}

	err := retry.Run(ctx, n.retry, func(ctx context.Context) error {
		return n.publisher.ProduceJSON(ctx, n.topic, recipient, msg, headers)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", kind, err)
	}
	return nil
}

// LogNotifier writes notifications to the event log. It is used when no
// broker is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the notification
func (LogNotifier) Send(ctx context.Context, kind service.NotificationKind, recipient string, payload map[string]any) error {
	logger.FromContext(ctx).Event("notification.sent",
		zap.String("kind", string(kind)),
		zap.String("recipient", recipient),
		zap.Any("payload", payload),
	)
	return nil
}
