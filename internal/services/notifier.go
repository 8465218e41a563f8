package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jobfinder/apiserver/internal/metrics"
	"github.com/jobfinder/apiserver/internal/mq"
)

// Notification event types.
const (
	EventUserRegistered           = "user.registered"
	EventApplicationCreated       = "application.created"
	EventApplicationStatusUpdated = "application.status_updated"
)

// Event is a notification published to the message queue.
type Event struct {
	Type          string    `json:"type"`
	UserID        string    `json:"userId,omitempty"`
	JobID         string    `json:"jobId,omitempty"`
	ApplicationID string    `json:"applicationId,omitempty"`
	Status        string    `json:"status,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher sends raw messages to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Notifier publishes events best-effort. Failures are logged and never
// returned to the caller. A nil Notifier or publisher drops events.
type Notifier struct {
	publisher Publisher
	channel   string
	logger    *slog.Logger
}

func NewNotifier(publisher Publisher, channel string, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, channel: channel, logger: logger}
}

func (n *Notifier) Publish(ctx context.Context, event Event) {
	if n == nil || n.publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("notification encode failed", "type", event.Type, "error", err)
		metrics.RecordNotification(event.Type, metrics.OutcomeError)
		return
	}

	id, err := n.publisher.Publish(ctx, n.channel, data, map[string]string{
		mq.AttrContentType: "application/json",
		mq.AttrEventType:   event.Type,
	})
	if err != nil {
		n.logger.Warn("notification publish failed", "type", event.Type, "channel", n.channel, "error", err)
		metrics.RecordNotification(event.Type, metrics.OutcomeFailure)
		return
	}
	n.logger.Debug("notification published", "type", event.Type, "message_id", id)
	metrics.RecordNotification(event.Type, metrics.OutcomeSuccess)
}
