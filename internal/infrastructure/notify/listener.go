package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/waterworks/backend/internal/domain/shared"
)

const defaultCloseTimeout = 5 * time.Second

// Listener subscribes to notification channels and invokes a callback for
// each envelope received. It backs the notifytail tool and lets operators
// follow the notification stream without standing up a full consumer.
type Listener struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	prefix     string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// ListenerOption is a functional option for configuring the listener
type ListenerOption func(*Listener)

// WithListenerChannelPrefix sets the Pub/Sub channel prefix
func WithListenerChannelPrefix(prefix string) ListenerOption {
	return func(l *Listener) {
		l.prefix = prefix
	}
}

// WithListenerLogger sets the logger for the listener
func WithListenerLogger(logger *zap.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a listener with its own Redis client
func NewListener(cfg RedisConfig, opts ...ListenerOption) (*Listener, error) {
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

	listener := &Listener{
		client:     client,
		ownsClient: true, // We created this client, so we own it
		prefix:     DefaultChannelPrefix,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(listener)
	}

	return listener, nil
}

// NewListenerWithClient creates a listener with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewListenerWithClient(client *redis.Client, opts ...ListenerOption) *Listener {
	listener := &Listener{
		client:     client,
		ownsClient: false, // Client is shared, don't close it
		prefix:     DefaultChannelPrefix,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(listener)
	}

	return listener
}

// Listen subscribes to the given audiences and invokes the callback for
// each envelope received. With no audiences it follows both the
// operations and administration channels. This method blocks; call it
// in a goroutine or use it as the main loop of a tool.
func (l *Listener) Listen(ctx context.Context, audiences []string, callback func(Envelope)) error {
	l.mu.Lock()
	if l.isRunning {
		l.mu.Unlock()
		return fmt.Errorf("listener already running")
	}
	l.isRunning = true
	l.mu.Unlock()

	if len(audiences) == 0 {
		audiences = []string{shared.AudienceOperations, shared.AudienceAdministration}
	}
	channels := make([]string, len(audiences))
	for i, audience := range audiences {
		channels[i] = l.prefix + audience
	}

	// Create a cancellable context
	subCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancelFn = cancel
	l.mu.Unlock()

	pubsub := l.client.Subscribe(subCtx, channels...)
	defer pubsub.Close()

	// Wait for subscription confirmation
	_, err := pubsub.Receive(subCtx)
	if err != nil {
		l.mu.Lock()
		l.isRunning = false
		l.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channels: %w", err)
	}

	l.logger.Info("subscribed to notification channels",
		zap.Strings("channels", channels))

	ch := pubsub.Channel()

	for {
		select {
		case <-subCtx.Done():
			l.logger.Info("notification listener stopped")
			l.mu.Lock()
			l.isRunning = false
			l.mu.Unlock()
			l.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				l.logger.Warn("notification channel closed")
				l.mu.Lock()
				l.isRunning = false
				l.mu.Unlock()
				l.markDone()
				return nil
			}

			var envelope Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				l.logger.Error("failed to unmarshal notification envelope",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			// Call the callback in a separate goroutine to prevent blocking
			go func(e Envelope) {
				defer func() {
					if r := recover(); r != nil {
						l.logger.Error("panic in notification callback",
							zap.Any("panic", r))
					}
				}()
				callback(e)
			}(envelope)
		}
	}
}

// markDone safely marks the listener as done
func (l *Listener) markDone() {
	l.doneOnce.Do(func() {
		close(l.doneCh)
	})
}

// Close releases any resources held by the listener
func (l *Listener) Close() error {
	l.mu.Lock()
	cancelFn := l.cancelFn
	l.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		// Wait for subscription to stop with timeout
		select {
		case <-l.doneCh:
		case <-time.After(defaultCloseTimeout):
			l.logger.Warn("timeout waiting for listener to stop")
		}
	}

	// Only close client if we own it
	if l.ownsClient {
		return l.client.Close()
	}
	return nil
}
