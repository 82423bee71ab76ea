// Package redis announces delivered artifacts over Redis pub/sub.
//
// Each delivery PUBLISHes an adapter.Notification as JSON. When a history
// key is configured the same payload is also pushed onto a capped list so
// late subscribers can catch up.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/replaycast/adapter"
)

// Name is the channel name reported in delivery outcomes.
const Name = "redis"

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "replaycast:artifact_delivered"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultHistoryLimit caps the history list when HistoryKey is set.
const DefaultHistoryLimit = 100

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: replaycast:artifact_delivered).
	Channel string
	// HistoryKey, if set, names a list that keeps recent notifications.
	HistoryKey string
	// HistoryLimit caps the history list length (default 100).
	HistoryLimit int
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 0).
	Retries int
}

// Adapter publishes artifact notifications via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Name returns the channel name.
func (a *Adapter) Name() string { return Name }

// Deliver publishes the notification for d.
func (a *Adapter) Deliver(ctx context.Context, d *adapter.Delivery) error {
	body, err := json.Marshal(adapter.NewNotification(d))
	if err != nil {
		return fmt.Errorf("redis: marshal notification: %w", err)
	}

	var lastErr error
	attempts := 1 + a.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("redis: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		lastErr = a.publish(publishCtx, body)
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	if attempts == 1 {
		return fmt.Errorf("redis: %w", lastErr)
	}
	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

// publish sends body to the channel and, when configured, records it in
// the history list within one transaction.
func (a *Adapter) publish(ctx context.Context, body []byte) error {
	if a.config.HistoryKey == "" {
		return a.client.Publish(ctx, a.config.Channel, body).Err()
	}

	_, err := a.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, a.config.HistoryKey, body)
		pipe.LTrim(ctx, a.config.HistoryKey, 0, int64(a.config.HistoryLimit-1))
		pipe.Publish(ctx, a.config.Channel, body)
		return nil
	})
	return err
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
