package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/waterworks/backend/internal/domain/shared"
)

// DefaultChannelPrefix is prepended to the audience name to form the
// Redis Pub/Sub channel, e.g. "waterworks:notify:operations".
const DefaultChannelPrefix = "waterworks:notify:"

// Envelope is the JSON message published on notification channels.
type Envelope struct {
	EventType string                 `json:"event_type"`
	Audience  string                 `json:"audience"`
	Payload   map[string]interface{} `json:"payload"`
	SentAt    time.Time              `json:"sent_at"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisNotifier implements shared.Notifier by publishing envelopes to
// per-audience Redis Pub/Sub channels. Delivery is fire-and-forget:
// publish failures are logged and never surfaced to the caller.
type RedisNotifier struct {
	client        *redis.Client
	ownsClient    bool // true if we created the client and should close it
	channelPrefix string
	logger        *zap.Logger
}

// RedisNotifierOption is a functional option for configuring the notifier
type RedisNotifierOption func(*RedisNotifier)

// WithChannelPrefix sets the Pub/Sub channel prefix
func WithChannelPrefix(prefix string) RedisNotifierOption {
	return func(n *RedisNotifier) {
		n.channelPrefix = prefix
	}
}

// WithLogger sets the logger for the notifier
func WithLogger(logger *zap.Logger) RedisNotifierOption {
	return func(n *RedisNotifier) {
		n.logger = logger
	}
}

// NewRedisNotifier creates a notifier with its own Redis client
func NewRedisNotifier(cfg RedisConfig, opts ...RedisNotifierOption) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	notifier := &RedisNotifier{
		client:        client,
		ownsClient:    true, // We created this client, so we own it
		channelPrefix: DefaultChannelPrefix,
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(notifier)
	}

	return notifier, nil
}

// NewRedisNotifierWithClient creates a notifier with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisNotifierWithClient(client *redis.Client, opts ...RedisNotifierOption) *RedisNotifier {
	notifier := &RedisNotifier{
		client:        client,
		ownsClient:    false, // Client is shared, don't close it
		channelPrefix: DefaultChannelPrefix,
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(notifier)
	}

	return notifier
}

// Notify publishes a notification envelope to the audience's channel.
// Failures are logged at Warn level; callers never see them.
func (n *RedisNotifier) Notify(ctx context.Context, eventType string, payload map[string]interface{}, audience string) {
	envelope := Envelope{
		EventType: eventType,
		Audience:  audience,
		Payload:   payload,
		SentAt:    time.Now(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		n.logger.Warn("failed to marshal notification envelope",
			zap.String("event_type", eventType),
			zap.String("audience", audience),
			zap.Error(err))
		return
	}

	channel := n.channelPrefix + audience
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		n.logger.Warn("failed to publish notification",
			zap.String("event_type", eventType),
			zap.String("channel", channel),
			zap.Error(err))
		return
	}

	n.logger.Debug("notification published",
		zap.String("event_type", eventType),
		zap.String("channel", channel))
}

// Close closes the Redis client if the notifier owns it
func (n *RedisNotifier) Close() error {
	if n.ownsClient {
		return n.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (n *RedisNotifier) GetClient() *redis.Client {
	return n.client
}

// Ensure RedisNotifier implements Notifier
var _ shared.Notifier = (*RedisNotifier)(nil)
