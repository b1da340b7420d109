// Package redis publishes decode completion events to a Redis pub/sub
// channel as JSON. Failed publishes are retried with exponential backoff.
//
// With Retain set, the event is also stored under a per-source key so a
// consumer that subscribes late can still read the last session outcome.
// PUBLISH and SET share one pipelined round trip.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/ddmscope/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "ddmscope:decode_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: ddmscope:decode_completed).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Retain keeps the latest event per source for this long.
	// Zero disables the latest-event key.
	Retain time.Duration
}

// Adapter publishes decode completion events via Redis PUBLISH.
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
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Retain < 0 {
		return nil, fmt.Errorf("retain must be >= 0, got %v", cfg.Retain)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Channel returns the channel events are published to.
func (a *Adapter) Channel() string {
	return a.config.Channel
}

// LatestKey returns the key holding the latest event of source.
func (a *Adapter) LatestKey(source string) string {
	return a.config.Channel + ":latest:" + source
}

// Publish sends the event as a JSON PUBLISH to the configured channel and,
// with Retain set, stores it under LatestKey.
func (a *Adapter) Publish(ctx context.Context, event *adapter.DecodeCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "redis", a.config.Retries, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		if a.config.Retain == 0 {
			return a.client.Publish(publishCtx, a.config.Channel, body).Err()
		}
		_, err := a.client.Pipelined(publishCtx, func(pipe goredis.Pipeliner) error {
			pipe.Publish(publishCtx, a.config.Channel, body)
			pipe.Set(publishCtx, a.LatestKey(event.Source), body, a.config.Retain)
			return nil
		})
		return err
	}, isClosed)
}

// isClosed reports a publish on a closed client, which no retry can fix.
func isClosed(err error) bool {
	return errors.Is(err, goredis.ErrClosed)
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
