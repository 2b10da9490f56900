package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/waterworks/backend/internal/domain/shared"
)

func TestLogNotifier_Notify(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	notifier := NewLogNotifier(zap.New(core))

	notifier.Notify(context.Background(), "reading.registered", map[string]interface{}{
		"meter_serial": "WM-2024-0117",
		"period":       "2025-06",
	}, shared.AudienceOperations)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "notification", logs[0].Message)

	fields := logs[0].ContextMap()
	assert.Equal(t, "reading.registered", fields["event_type"])
	assert.Equal(t, shared.AudienceOperations, fields["audience"])
}

func TestEnvelope_JSONShape(t *testing.T) {
	envelope := Envelope{
		EventType: "invoice.generated",
		Audience:  shared.AudienceAdministration,
		Payload:   map[string]interface{}{"total": "51.25"},
		SentAt:    time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
	}

	data, err := json.Marshal(envelope)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "invoice.generated", decoded["event_type"])
	assert.Equal(t, "administration", decoded["audience"])
	assert.Contains(t, decoded, "payload")
	assert.Contains(t, decoded, "sent_at")
}

func TestRedisNotifier_SwallowsPublishFailures(t *testing.T) {
	// Point at a port nothing listens on; the publish must fail without
	// surfacing an error to the caller.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	core, recorded := observer.New(zapcore.WarnLevel)
	notifier := NewRedisNotifierWithClient(client, WithLogger(zap.New(core)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	notifier.Notify(ctx, "payment.applied", map[string]interface{}{"applied": "20.00"}, shared.AudienceAdministration)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Equal(t, "failed to publish notification", logs[0].Message)
}

func TestRedisNotifier_ChannelPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	t.Run("default prefix", func(t *testing.T) {
		notifier := NewRedisNotifierWithClient(client)
		assert.Equal(t, DefaultChannelPrefix, notifier.channelPrefix)
	})

	t.Run("custom prefix", func(t *testing.T) {
		notifier := NewRedisNotifierWithClient(client, WithChannelPrefix("utility:events:"))
		assert.Equal(t, "utility:events:", notifier.channelPrefix)
	})

	t.Run("does not own a shared client", func(t *testing.T) {
		notifier := NewRedisNotifierWithClient(client)
		require.NoError(t, notifier.Close())
		// The shared client must survive the notifier's Close.
		assert.NotNil(t, notifier.GetClient())
	})
}
