// Package policy controls how decode records reach the archive.
package policy

import (
	"context"
	"maps"
	"sync"

	"github.com/pithecene-io/ddmscope/types"
)

// Policy defines the archive policy interface.
// Policies control buffering, dropping, and persistence of decode records.
//
//   - May drop: chunk records (the packet record keeps the chunk count)
//   - Must NOT drop: packet and fail records
//   - Policy must not alter record shapes
//   - Policy failure terminates the session
type Policy interface {
	// Ingest handles one decode record.
	// May drop droppable kinds. Returns error to terminate the session.
	Ingest(ctx context.Context, rec *types.Record) error

	// Flush flushes any buffered records.
	// Called at end of stream, on decode error, and on cancellation.
	Flush(ctx context.Context) error

	// Close cleans up policy resources.
	Close() error

	// Stats returns an atomic snapshot of policy metrics.
	Stats() Stats
}

// Stats represents policy observability metrics.
type Stats struct {
	// TotalRecords is the total number of records received.
	TotalRecords int64
	// RecordsPersisted is the number of records written to the sink.
	RecordsPersisted int64
	// RecordsDropped is the total number of records dropped.
	RecordsDropped int64
	// DroppedByKind maps record kinds to drop counts.
	DroppedByKind map[types.RecordKind]int64
	// BufferSize is the current buffer size in bytes (if buffered).
	BufferSize int64
	// FlushCount is the number of flush operations.
	FlushCount int64
	// Errors is the count of sink and overflow errors.
	Errors int64
}

var droppableKinds = map[types.RecordKind]bool{
	types.RecordKindChunk: true,
}

// IsDroppable returns true if records of kind may be dropped by policy.
func IsDroppable(kind types.RecordKind) bool {
	return droppableKinds[kind]
}

// statsRecorder is an internal helper for stats management.
//
// Lock discipline: StrictPolicy and NoopPolicy use the locking methods;
// BufferedPolicy and StreamingPolicy use the Locked methods only while
// holding their own mu, keeping buffer state and counters consistent.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{
		stats: Stats{DroppedByKind: make(map[types.RecordKind]int64)},
	}
}

func (r *statsRecorder) incTotal() {
	r.mu.Lock()
	r.incTotalLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) incPersisted(n int64) {
	r.mu.Lock()
	r.incPersistedLocked(n)
	r.mu.Unlock()
}

func (r *statsRecorder) incDropped(kind types.RecordKind) {
	r.mu.Lock()
	r.incDroppedLocked(kind)
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.incErrorsLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush() {
	r.mu.Lock()
	r.incFlushLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(r.stats.BufferSize)
}

// --- Locked methods ---
// Caller must hold the owning policy's mu.

func (r *statsRecorder) incTotalLocked() { r.stats.TotalRecords++ }
func (r *statsRecorder) incPersistedLocked(n int64) { r.stats.RecordsPersisted += n }
func (r *statsRecorder) incErrorsLocked() { r.stats.Errors++ }
func (r *statsRecorder) incFlushLocked() { r.stats.FlushCount++ }

func (r *statsRecorder) incDroppedLocked(kind types.RecordKind) {
	r.stats.RecordsDropped++
	r.stats.DroppedByKind[kind]++
}

func (r *statsRecorder) setBufferSizeLocked(bytes int64) {
	r.stats.BufferSize = bytes
}

// snapshotLocked returns a snapshot with the given bufferSize.
func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	s.DroppedByKind = maps.Clone(r.stats.DroppedByKind)
	return s
}
