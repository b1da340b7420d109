package policy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/pithecene-io/ddmscope/log"
	"github.com/pithecene-io/ddmscope/types"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferRecords is the maximum number of records to buffer.
	// Zero means no limit (use MaxBufferBytes instead).
	MaxBufferRecords int

	// MaxBufferBytes is the maximum buffer size in bytes (estimated).
	// Zero means no limit. At least one limit must be set.
	MaxBufferBytes int64

	// Logger is an optional logger for policy observability.
	Logger *log.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered policy.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferRecords: 10000,
		MaxBufferBytes:   8 * 1024 * 1024,
	}
}

// ErrBufferFull is returned when the buffer is full and the record is non-droppable.
var ErrBufferFull = errors.New("buffer full: cannot accept non-droppable record")

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferRecords or MaxBufferBytes must be set")

// BufferedPolicy implements buffered persistence with drop rules.
//
//   - Bounded buffer with explicit limits
//   - May drop chunk records, never packet or fail records
//   - Batch write on flush, buffer preserved on failure (at least once)
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu          sync.Mutex
	buffer      []*types.Record
	bufferBytes int64
	stats       *statsRecorder
}

// NewBufferedPolicy creates a new buffered policy.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferRecords <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buffer: make([]*types.Record, 0, min(max(config.MaxBufferRecords, 100), 4096)),
		stats:  newStatsRecorder(),
	}, nil
}

// Ingest buffers the record, applying drop rules if the buffer is full.
//
// Drop strategy when full:
//   - droppable incoming record: drop it
//   - non-droppable incoming record: evict the oldest droppable record
//   - nothing to evict: return ErrBufferFull (fails the session)
func (p *BufferedPolicy) Ingest(_ context.Context, rec *types.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalLocked()
	size := rec.EstimatedSize()

	if p.hasRoomForRecord(size) {
		p.append(rec, size)
		return nil
	}

	if IsDroppable(rec.Kind) {
		p.stats.incDroppedLocked(rec.Kind)
		p.logDrop(rec.Kind, "buffer_full")
		return nil
	}

	if p.dropOldestDroppable() && p.hasRoomForBytes(size) {
		p.append(rec, size)
		return nil
	}

	p.stats.incErrorsLocked()
	p.logBufferOverflow(rec.Kind)
	return fmt.Errorf("%w: %s record", ErrBufferFull, rec.Kind)
}

// append adds a record to the buffer. Caller must hold mu.
func (p *BufferedPolicy) append(rec *types.Record, size int64) {
	p.buffer = append(p.buffer, rec)
	p.bufferBytes += size
	p.stats.setBufferSizeLocked(p.bufferBytes)
}

// Flush writes all buffered records to the sink in one batch.
// On failure the buffer is kept intact: a retry may duplicate, never lose.
// Ingestion blocks while the batch is written.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incFlushLocked()
	if len(p.buffer) == 0 {
		return nil
	}
	if err := p.sink.WriteRecords(ctx, p.buffer); err != nil {
		p.stats.incErrorsLocked()
		p.logFlushFailure(len(p.buffer), err)
		return err
	}

	p.stats.incPersistedLocked(int64(len(p.buffer)))
	p.buffer = make([]*types.Record, 0, cap(p.buffer))
	p.bufferBytes = 0
	p.stats.setBufferSizeLocked(0)
	return nil
}

// Close flushes remaining records and closes the sink.
func (p *BufferedPolicy) Close() error {
	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns an atomic snapshot of policy statistics.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(p.bufferBytes)
}

func (p *BufferedPolicy) hasRoomForRecord(size int64) bool {
	if p.config.MaxBufferRecords > 0 && len(p.buffer) >= p.config.MaxBufferRecords {
		return false
	}
	return p.hasRoomForBytes(size)
}

func (p *BufferedPolicy) hasRoomForBytes(size int64) bool {
	return p.config.MaxBufferBytes <= 0 || p.bufferBytes+size <= p.config.MaxBufferBytes
}

// dropOldestDroppable evicts the oldest droppable record.
// Returns false if there is none. Caller must hold mu.
func (p *BufferedPolicy) dropOldestDroppable() bool {
	i := slices.IndexFunc(p.buffer, func(r *types.Record) bool { return IsDroppable(r.Kind) })
	if i < 0 {
		return false
	}
	evicted := p.buffer[i]
	p.buffer = slices.Delete(p.buffer, i, i+1)
	p.bufferBytes -= evicted.EstimatedSize()
	p.stats.setBufferSizeLocked(p.bufferBytes)
	p.stats.incDroppedLocked(evicted.Kind)
	p.logDrop(evicted.Kind, "evicted_for_non_droppable")
	return true
}

// --- Logging helpers ---

func (p *BufferedPolicy) logDrop(kind types.RecordKind, reason string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("record dropped", map[string]any{
		"record_kind": string(kind),
		"reason":      reason,
		"policy":      "buffered",
	})
}

func (p *BufferedPolicy) logBufferOverflow(kind types.RecordKind) {
	if p.logger == nil {
		return
	}
	p.logger.Error("buffer overflow", map[string]any{
		"record_kind": string(kind),
		"policy":      "buffered",
	})
}

func (p *BufferedPolicy) logFlushFailure(records int, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"records": records,
		"error":   err.Error(),
		"policy":  "buffered",
	})
}

// Verify BufferedPolicy implements Policy.
var _ Policy = (*BufferedPolicy)(nil)
