package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/adapter"
	redisadapter "github.com/pithecene-io/ddmscope/adapter/redis"
	"github.com/pithecene-io/ddmscope/adapter/webhook"
	"github.com/pithecene-io/ddmscope/cli/config"
	"github.com/pithecene-io/ddmscope/log"
	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/session"
)

// adapterChoice holds parsed notification adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
	secret      string
	retain      time.Duration
}

// parseAdapterConfigWithPrecedence resolves adapter settings for
// adapterType from flags and config.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (*adapterChoice, error) {
	ac := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL })),
		channel:     resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
		timeout:     resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Timeout.Duration })),
		retries:     c.Int("adapter-retries"),
		secret:      resolveString(c, "adapter-secret", configVal(cfg, func(c *config.Config) string { return c.Adapter.Secret })),
		retain:      resolveDuration(c, "adapter-retain", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Retain.Duration })),
		headers:     map[string]string{},
	}
	if !c.IsSet("adapter-retries") {
		if r := configVal(cfg, func(c *config.Config) *int { return c.Adapter.Retries }); r != nil {
			ac.retries = *r
		}
	}

	// Config headers first, CLI headers override per key.
	for k, v := range configVal(cfg, func(c *config.Config) map[string]string { return c.Adapter.Headers }) {
		ac.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (want Key=Value)", h)
		}
		ac.headers[k] = v
	}

	switch adapterType {
	case "webhook", "redis":
		if ac.url == "" {
			return nil, fmt.Errorf("--adapter-url is required when --adapter=%s", adapterType)
		}
	default:
		return nil, fmt.Errorf("unknown adapter type: %q (must be webhook or redis)", adapterType)
	}
	if ac.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}
	if ac.secret != "" && adapterType != "webhook" {
		return nil, errors.New("--adapter-secret requires --adapter=webhook")
	}
	if ac.retain != 0 && adapterType != "redis" {
		return nil, errors.New("--adapter-retain requires --adapter=redis")
	}
	return ac, nil
}

// parseAdapterChoice returns nil when no adapter is configured.
func parseAdapterChoice(c *cli.Context, cfg *config.Config) (*adapterChoice, error) {
	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type }))
	if adapterType == "" {
		return nil, nil
	}
	return parseAdapterConfigWithPrecedence(c, cfg, adapterType)
}

func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
			Secret:  ac.secret,
		})
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
			Retain:  ac.retain,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %q", ac.adapterType)
	}
}

// notify publishes the completion event of result. Failures are logged
// and counted but never change the session exit code.
func notify(ctx context.Context, ac *adapterChoice, result *session.Result, storagePath string, collector *metrics.Collector, logger *log.Logger) {
	a, err := buildAdapter(ac)
	if err != nil {
		collector.IncNotifyFailure()
		logger.Warn("adapter setup failed", map[string]any{"adapter": ac.adapterType, "error": err.Error()})
		return
	}
	defer func() { _ = a.Close() }()

	event := adapter.NewDecodeCompletedEvent(result, storagePath, time.Now())
	if err := a.Publish(ctx, event); err != nil {
		collector.IncNotifyFailure()
		logger.Warn("notification failed", map[string]any{"adapter": ac.adapterType, "error": err.Error()})
		return
	}
	collector.IncNotifySuccess()
	logger.Info("notification published", map[string]any{"adapter": ac.adapterType, "event_type": event.EventType})
}
