package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/ddmscope/log"
	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/policy"
	"github.com/pithecene-io/ddmscope/types"
)

// flushTimeout bounds the final policy flush, which runs even after the
// session context is canceled.
const flushTimeout = 30 * time.Second

// Config configures a single decode session.
type Config struct {
	// Meta is the session identity.
	Meta *types.SessionMeta
	// Input is the JDWP byte stream.
	Input io.Reader
	// Options controls decoding.
	Options Options
	// Policy receives every record.
	Policy policy.Policy
	// Logger is the session logger. If nil, logging is discarded.
	Logger *log.Logger
	// Collector is the metrics collector for this session.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Observer is an optional callback invoked with every record.
	Observer Observer
}

// Result represents the result of a decode session.
type Result struct {
	// Meta is the session identity.
	Meta *types.SessionMeta
	// Outcome is the session outcome.
	Outcome Outcome
	// Message describes the outcome.
	Message string
	// Err is the error that ended the session, nil on completion.
	Err error
	// Duration is the total session duration.
	Duration time.Duration
	// Counts are the decode totals.
	Counts Counts
	// PolicyStats is the policy statistics after the final flush.
	PolicyStats policy.Stats
	// FlushTriggers holds per-trigger flush counts for policies that
	// report them.
	FlushTriggers map[string]int64
}

// flushTriggerReporter is implemented by policies that count flush triggers.
type flushTriggerReporter interface {
	FlushTriggerStats() map[policy.FlushTrigger]int64
}

// Run executes a decode session end-to-end.
//
// Execution flow:
//  1. Decode packets until EOF or a fatal error
//  2. Flush the policy (always, with a context detached from ctx)
//  3. Determine the outcome
//
// The returned error is only for an invalid Config; decode failures are
// reported through Result.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	start := time.Now()
	cfg.Collector.IncSessionStarted()
	logger.Info("starting session", map[string]any{
		"handshake":     cfg.Options.Handshake,
		"expand_chunks": cfg.Options.ExpandChunks,
	})

	engine := NewEngine(cfg.Input, cfg.Options, cfg.Policy, logger, cfg.Collector, cfg.Observer)
	runErr := engine.Run(ctx)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	flushErr := cfg.Policy.Flush(flushCtx)
	cancel()
	if flushErr != nil {
		logger.Error("policy flush failed", map[string]any{
			"error": flushErr.Error(),
		})
	}

	outcome, message := DetermineOutcome(runErr, flushErr)
	stats := cfg.Policy.Stats()
	cfg.Collector.AbsorbPolicyStats(stats.TotalRecords, stats.RecordsPersisted, stats.RecordsDropped)
	if outcome == OutcomeCompleted {
		cfg.Collector.IncSessionCompleted()
	} else {
		cfg.Collector.IncSessionFailed()
	}

	result := &Result{
		Meta:        cfg.Meta,
		Outcome:     outcome,
		Message:     message,
		Err:         errors.Join(runErr, flushErr),
		Duration:    time.Since(start),
		Counts:      engine.Counts(),
		PolicyStats: stats,
	}
	if r, ok := cfg.Policy.(flushTriggerReporter); ok {
		result.FlushTriggers = make(map[string]int64)
		for trigger, n := range r.FlushTriggerStats() {
			result.FlushTriggers[string(trigger)] = n
		}
	}

	logger.Info("session finished", map[string]any{
		"outcome":     string(outcome),
		"packets":     result.Counts.Packets,
		"chunks":      result.Counts.Chunks,
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result, nil
}

func (c *Config) validate() error {
	switch {
	case c == nil:
		return errors.New("session config is nil")
	case c.Meta == nil:
		return errors.New("session meta is required")
	case c.Input == nil:
		return errors.New("session input is required")
	case c.Policy == nil:
		return errors.New("session policy is required")
	}
	if c.Options.MaxPackets < 0 {
		return fmt.Errorf("max packets must be >= 0, got %d", c.Options.MaxPackets)
	}
	return nil
}
