// Package metrics provides per-session decode metrics.
//
// The Collector accumulates counters during a single decode session. It is a
// leaf package with no internal dependencies. Archive policy counters are
// absorbed from policy.Stats at session completion rather than recorded live.
package metrics

import (
	"maps"
	"sync"
)

// Snapshot is an immutable point-in-time view of the session metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Sessions
	SessionsStarted   int64 `json:"sessions_started"`
	SessionsCompleted int64 `json:"sessions_completed"`
	SessionsFailed    int64 `json:"sessions_failed"`

	// Decode
	Packets      int64            `json:"packets"`
	Commands     int64            `json:"commands"`
	Replies      int64            `json:"replies"`
	PayloadBytes int64            `json:"payload_bytes"`
	Chunks       int64            `json:"chunks"`
	ChunksByType map[string]int64 `json:"chunks_by_type"`
	FailChunks   int64            `json:"fail_chunks"`
	DecodeErrors int64            `json:"decode_errors"`

	// Capture
	CaptureFrames int64 `json:"capture_frames"`

	// Archive (absorbed from policy.Stats at session completion)
	RecordsReceived  int64 `json:"records_received"`
	RecordsPersisted int64 `json:"records_persisted"`
	RecordsDropped   int64 `json:"records_dropped"`

	// Storage, per write call
	ArchiveWriteSuccess int64 `json:"archive_write_success"`
	ArchiveWriteFailure int64 `json:"archive_write_failure"`

	// Notifications
	NotifySuccess int64 `json:"notify_success"`
	NotifyFailure int64 `json:"notify_failure"`

	// Dimensions (informational, set at construction)
	Source         string `json:"source"`
	Policy         string `json:"policy"`
	StorageBackend string `json:"storage_backend"`
	SessionID      string `json:"session_id"`
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(source, policy, storageBackend, sessionID string) *Collector {
	return &Collector{s: Snapshot{
		ChunksByType:   make(map[string]int64),
		Source:         source,
		Policy:         policy,
		StorageBackend: storageBackend,
		SessionID:      sessionID,
	}}
}

func (c *Collector) update(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

// --- Sessions ---

// IncSessionStarted records a session start.
func (c *Collector) IncSessionStarted() { c.update(func(s *Snapshot) { s.SessionsStarted++ }) }

// IncSessionCompleted records a session that reached the end of its stream.
func (c *Collector) IncSessionCompleted() { c.update(func(s *Snapshot) { s.SessionsCompleted++ }) }

// IncSessionFailed records a session aborted by a decode, policy or
// cancellation error.
func (c *Collector) IncSessionFailed() { c.update(func(s *Snapshot) { s.SessionsFailed++ }) }

// --- Decode ---

// IncPacket records a decoded packet header and its payload size.
func (c *Collector) IncPacket(isReply bool, payloadBytes int) {
	c.update(func(s *Snapshot) {
		s.Packets++
		if isReply {
			s.Replies++
		} else {
			s.Commands++
		}
		s.PayloadBytes += int64(payloadBytes)
	})
}

// IncChunk records a decoded chunk header of the given type.
func (c *Collector) IncChunk(chunkType string) {
	c.update(func(s *Snapshot) {
		s.Chunks++
		s.ChunksByType[chunkType]++
	})
}

// IncFailChunk records a decoded FAIL chunk.
func (c *Collector) IncFailChunk() { c.update(func(s *Snapshot) { s.FailChunks++ }) }

// IncDecodeErrors records a fatal decode error.
func (c *Collector) IncDecodeErrors() { c.update(func(s *Snapshot) { s.DecodeErrors++ }) }

// IncCaptureFrames records a capture frame read or written.
func (c *Collector) IncCaptureFrames() { c.update(func(s *Snapshot) { s.CaptureFrames++ }) }

// --- Archive ---
// Archive counters are per-call, not per-record. A single WriteRecords call
// with N records counts as 1 success.

// IncArchiveWriteSuccess records a successful archive write (per-call).
func (c *Collector) IncArchiveWriteSuccess() { c.update(func(s *Snapshot) { s.ArchiveWriteSuccess++ }) }

// IncArchiveWriteFailure records a failed archive write (per-call).
func (c *Collector) IncArchiveWriteFailure() { c.update(func(s *Snapshot) { s.ArchiveWriteFailure++ }) }

// --- Notifications ---

// IncNotifySuccess records a published completion event.
func (c *Collector) IncNotifySuccess() { c.update(func(s *Snapshot) { s.NotifySuccess++ }) }

// IncNotifyFailure records a completion event that could not be published.
func (c *Collector) IncNotifyFailure() { c.update(func(s *Snapshot) { s.NotifyFailure++ }) }

// AbsorbPolicyStats copies archive counters from policy.Stats into the
// collector. Called once after session completion with the final stats.
func (c *Collector) AbsorbPolicyStats(received, persisted, dropped int64) {
	c.update(func(s *Snapshot) {
		s.RecordsReceived = received
		s.RecordsPersisted = persisted
		s.RecordsDropped = dropped
	})
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{ChunksByType: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.s
	s.ChunksByType = maps.Clone(c.s.ChunksByType)
	return s
}
