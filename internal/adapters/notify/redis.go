package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gatherly/internal/domain"
)

// Channel is the pub/sub channel notification consumers subscribe to.
const Channel = "gatherly.notifications"

// envelope is the wire format published to redis. Consumers correlate on the
// unique ID.
type envelope struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	EventID   string                  `json:"event_id"`
	Kind      domain.NotificationKind `json:"kind"`
	Timestamp time.Time               `json:"timestamp"`
}

type redisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier returns a Notifier publishing to a redis pub/sub channel.
func NewRedisNotifier(redisURL string) (domain.Notifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &redisNotifier{client: redis.NewClient(opts)}, nil
}

func (n *redisNotifier) Notify(ctx context.Context, userID, eventID string, kind domain.NotificationKind) error {
	payload, err := json.Marshal(envelope{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventID:   eventID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a Notifier that only logs. Used when no redis
// instance is configured.
func NewLogNotifier(logger *slog.Logger) domain.Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(ctx context.Context, userID, eventID string, kind domain.NotificationKind) error {
	n.logger.InfoContext(ctx, "notification", "user_id", userID, "event_id", eventID, "kind", kind)
	return nil
}
