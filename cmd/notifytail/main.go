package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/waterworks/backend/internal/infrastructure/config"
	"github.com/waterworks/backend/internal/infrastructure/logger"
	"github.com/waterworks/backend/internal/infrastructure/notify"
	"go.uber.org/zap"
)

// notifytail follows the notification Pub/Sub stream and prints every
// envelope, one per line. It is the operator's way to watch readings,
// invoices and payments land without attaching a full consumer.
func main() {
	var (
		audiencesFlag string
		asJSON        bool
		logLevel      string
	)

	flag.StringVar(&audiencesFlag, "audiences", "", "Comma-separated audiences to follow (default: operations,administration)")
	flag.BoolVar(&asJSON, "json", false, "Print raw envelope JSON instead of the formatted line")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if !cfg.Redis.Enabled {
		log.Fatal("Redis is disabled in configuration; there is no stream to follow")
	}

	var audiences []string
	if audiencesFlag != "" {
		for _, a := range strings.Split(audiencesFlag, ",") {
			if trimmed := strings.TrimSpace(a); trimmed != "" {
				audiences = append(audiences, trimmed)
			}
		}
	}

	listenerOpts := []notify.ListenerOption{notify.WithListenerLogger(log)}
	if cfg.Notify.ChannelPrefix != "" {
		listenerOpts = append(listenerOpts, notify.WithListenerChannelPrefix(cfg.Notify.ChannelPrefix))
	}
	listener, err := notify.NewListener(notify.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, listenerOpts...)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Warn("Error closing listener", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	err = listener.Listen(ctx, audiences, func(envelope notify.Envelope) {
		printEnvelope(envelope, asJSON)
	})
	if err != nil && ctx.Err() == nil {
		log.Fatal("Listener stopped", zap.Error(err))
	}
}

func printEnvelope(envelope notify.Envelope, asJSON bool) {
	if asJSON {
		raw, err := json.Marshal(envelope)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal envelope: %v\n", err)
			return
		}
		fmt.Println(string(raw))
		return
	}

	parts := make([]string, 0, len(envelope.Payload))
	for key, value := range envelope.Payload {
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	fmt.Printf("%s  [%s] %s  %s\n",
		envelope.SentAt.Format("2006-01-02 15:04:05"),
		envelope.Audience,
		envelope.EventType,
		strings.Join(parts, " "),
	)
}
