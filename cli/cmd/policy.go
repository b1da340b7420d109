package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/cli/config"
	"github.com/pithecene-io/ddmscope/log"
	"github.com/pithecene-io/ddmscope/policy"
)

// policyChoice holds parsed policy configuration.
type policyChoice struct {
	name          string
	maxRecords    int
	maxBytes      int64
	flushCount    int
	flushInterval time.Duration
	flushOnFail   bool
}

func parsePolicyChoice(c *cli.Context, cfg *config.Config, archiving bool) policyChoice {
	choice := policyChoice{
		name:          resolveString(c, "policy", configVal(cfg, func(c *config.Config) string { return c.Policy.Name })),
		maxRecords:    resolveInt(c, "buffer-records", configVal(cfg, func(c *config.Config) int { return c.Policy.BufferRecords })),
		maxBytes:      resolveInt64(c, "buffer-bytes", configVal(cfg, func(c *config.Config) int64 { return c.Policy.BufferBytes })),
		flushCount:    resolveInt(c, "flush-count", configVal(cfg, func(c *config.Config) int { return c.Policy.FlushCount })),
		flushInterval: resolveDuration(c, "flush-interval", configVal(cfg, func(c *config.Config) time.Duration { return c.Policy.FlushInterval.Duration })),
		flushOnFail:   resolveBool(c, "flush-on-fail", configVal(cfg, func(c *config.Config) bool { return c.Policy.FlushOnFail })),
	}
	if choice.name == "" {
		choice.name = "noop"
		if archiving {
			choice.name = "strict"
		}
	}
	return choice
}

// validatePolicyConfig checks the choice against the storage setup.
// Flags that do not apply to the chosen policy produce warnings.
func validatePolicyConfig(choice policyChoice, archiving bool, logger *log.Logger) error {
	if choice.name != "noop" && !archiving {
		return fmt.Errorf("%s policy requires --storage-path", choice.name)
	}

	bufferSet := choice.maxRecords > 0 || choice.maxBytes > 0
	flushSet := choice.flushCount > 0 || choice.flushInterval > 0

	switch choice.name {
	case "strict", "noop":
		if bufferSet || flushSet {
			logger.Warn("buffer/flush flags ignored", map[string]any{"policy": choice.name})
		}
		return nil

	case "buffered":
		if flushSet {
			logger.Warn("flush flags ignored", map[string]any{"policy": choice.name})
		}
		return nil

	case "streaming":
		if !flushSet {
			return errors.New("streaming policy requires --flush-count > 0 or --flush-interval > 0")
		}
		if bufferSet {
			logger.Warn("buffer flags ignored", map[string]any{"policy": choice.name})
		}
		return nil

	default:
		return fmt.Errorf("invalid policy: %s (must be strict, buffered, streaming, or noop)", choice.name)
	}
}

// buildPolicy creates the policy writing to sink. sink is unused by noop.
func buildPolicy(choice policyChoice, sink policy.Sink, logger *log.Logger) (policy.Policy, error) {
	switch choice.name {
	case "strict":
		return policy.NewStrictPolicy(sink), nil

	case "buffered":
		cfg := policy.DefaultBufferedConfig()
		if choice.maxRecords > 0 || choice.maxBytes > 0 {
			cfg.MaxBufferRecords = choice.maxRecords
			cfg.MaxBufferBytes = choice.maxBytes
		}
		cfg.Logger = logger
		return policy.NewBufferedPolicy(sink, cfg)

	case "streaming":
		return policy.NewStreamingPolicy(sink, policy.StreamingConfig{
			FlushCount:    choice.flushCount,
			FlushInterval: choice.flushInterval,
			FlushOnFail:   choice.flushOnFail,
			Logger:        logger,
		})

	case "noop":
		return policy.NewNoopPolicy(), nil

	default:
		return nil, fmt.Errorf("unknown policy: %s", choice.name)
	}
}
