// Package adapter defines the notification boundary.
//
// Adapters publish decode completion events to downstream systems once a
// session has finished and its records are archived. The CLI owns adapter
// lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/ddmscope/session"
	"github.com/pithecene-io/ddmscope/types"
)

// EventTypeDecodeCompleted is the event_type of every published event.
const EventTypeDecodeCompleted = "decode_completed"

// DecodeCompletedEvent is the payload published when a session finishes.
type DecodeCompletedEvent struct {
	Version     string `json:"version"`
	EventType   string `json:"event_type"` // always "decode_completed"
	SessionID   string `json:"session_id"`
	Source      string `json:"source"`
	Day         string `json:"day"`
	Outcome     string `json:"outcome"` // completed, decode_error, ...
	StoragePath string `json:"storage_path,omitempty"`
	Timestamp   string `json:"timestamp"` // RFC 3339
	Packets     int64  `json:"packets"`
	Chunks      int64  `json:"chunks"`
	FailChunks  int64  `json:"fail_chunks"`
	DurationMs  int64  `json:"duration_ms"`
}

// NewDecodeCompletedEvent builds the event for a finished session.
func NewDecodeCompletedEvent(result *session.Result, storagePath string, now time.Time) *DecodeCompletedEvent {
	return &DecodeCompletedEvent{
		Version:     types.Version,
		EventType:   EventTypeDecodeCompleted,
		SessionID:   result.Meta.SessionID,
		Source:      result.Meta.Source,
		Day:         result.Meta.Day(),
		Outcome:     string(result.Outcome),
		StoragePath: storagePath,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Packets:     result.Counts.Packets,
		Chunks:      result.Counts.Chunks,
		FailChunks:  result.Counts.FailChunks,
		DurationMs:  result.Duration.Milliseconds(),
	}
}

// Adapter publishes decode completion events to a downstream system.
type Adapter interface {
	// Publish sends a decode completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *DecodeCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry. Each further retry
// doubles it.
const BaseBackoff = 500 * time.Millisecond

// Retry calls attempt up to 1+retries times with exponential backoff
// between attempts. It stops early when ctx is done or when permanent
// reports the last error as not worth retrying. name prefixes returned
// errors.
func Retry(ctx context.Context, name string, retries int, attempt func(ctx context.Context) error, permanent func(error) bool) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
