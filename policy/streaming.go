package policy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pithecene-io/ddmscope/log"
	"github.com/pithecene-io/ddmscope/types"
)

// StreamingConfig configures a StreamingPolicy.
type StreamingConfig struct {
	// FlushCount triggers a flush after N records accumulate.
	// Zero means count-based flush is disabled.
	FlushCount int

	// FlushInterval triggers a flush every interval.
	// Zero means interval-based flush is disabled.
	FlushInterval time.Duration

	// FlushOnFail flushes as soon as a FAIL record arrives, so VM-reported
	// errors reach storage before the capture ends.
	FlushOnFail bool

	// Logger is an optional logger for policy observability.
	Logger *log.Logger
}

// FlushTrigger identifies which trigger caused a flush.
type FlushTrigger string

const (
	// FlushTriggerCount indicates a count-threshold flush.
	FlushTriggerCount FlushTrigger = "count"
	// FlushTriggerInterval indicates an interval-based flush.
	FlushTriggerInterval FlushTrigger = "interval"
	// FlushTriggerFail indicates a flush caused by a FAIL record.
	FlushTriggerFail FlushTrigger = "fail"
	// FlushTriggerTermination indicates an end-of-session flush.
	FlushTriggerTermination FlushTrigger = "termination"
)

var flushTriggers = []FlushTrigger{
	FlushTriggerCount,
	FlushTriggerInterval,
	FlushTriggerFail,
	FlushTriggerTermination,
}

// ErrStreamingInvalidConfig is returned when StreamingConfig is invalid.
var ErrStreamingInvalidConfig = errors.New("invalid streaming config: at least one of FlushCount or FlushInterval must be set")

// StreamingPolicy implements continuous persistence with batched writes,
// suited to long captures.
//
//   - No drops: every record is persisted
//   - Records accumulate in memory until a trigger fires
//   - On flush failure the batch is restored ahead of newer records
//
// mu guards buffer state and stats. flushMu serializes flushes between the
// interval goroutine and the count trigger; the sink write runs outside mu
// so ingestion continues during a write.
type StreamingPolicy struct {
	sink   Sink
	config StreamingConfig
	logger *log.Logger

	mu          sync.Mutex
	buffer      []*types.Record
	bufferBytes int64
	stats       *statsRecorder

	flushMu sync.Mutex

	// Guarded by mu.
	flushes map[FlushTrigger]int64

	stopCh  chan struct{}
	stopped bool
	done    sync.WaitGroup
}

// NewStreamingPolicy creates a new streaming policy.
func NewStreamingPolicy(sink Sink, config StreamingConfig) (*StreamingPolicy, error) {
	if config.FlushCount <= 0 && config.FlushInterval <= 0 {
		return nil, ErrStreamingInvalidConfig
	}

	p := &StreamingPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buffer: make([]*types.Record, 0, 128),
		stats:   newStatsRecorder(),
		flushes: make(map[FlushTrigger]int64, len(flushTriggers)),
		stopCh:  make(chan struct{}),
	}
	if config.FlushInterval > 0 {
		p.done.Add(1)
		go p.intervalLoop()
	}
	return p, nil
}

// Ingest adds the record to the buffer and flushes when the count
// threshold is reached or a FAIL record arrives with FlushOnFail set.
func (p *StreamingPolicy) Ingest(ctx context.Context, rec *types.Record) error {
	p.mu.Lock()
	p.stats.incTotalLocked()
	p.buffer = append(p.buffer, rec)
	p.bufferBytes += rec.EstimatedSize()
	p.stats.setBufferSizeLocked(p.bufferBytes)
	trigger, due := p.dueTriggerLocked(rec)
	p.mu.Unlock()

	if !due {
		return nil
	}
	return p.triggerFlush(ctx, trigger)
}

// dueTriggerLocked reports which record-driven trigger, if any, fires after
// rec was appended. Caller must hold mu.
func (p *StreamingPolicy) dueTriggerLocked(rec *types.Record) (FlushTrigger, bool) {
	if p.config.FlushOnFail && rec.Kind == types.RecordKindFail {
		return FlushTriggerFail, true
	}
	if p.config.FlushCount > 0 && len(p.buffer) >= p.config.FlushCount {
		return FlushTriggerCount, true
	}
	return "", false
}

// Flush flushes all buffered records (termination trigger).
func (p *StreamingPolicy) Flush(ctx context.Context) error {
	return p.triggerFlush(ctx, FlushTriggerTermination)
}

// triggerFlush swaps the buffer under mu, writes outside mu, and restores
// the batch on failure.
func (p *StreamingPolicy) triggerFlush(ctx context.Context, trigger FlushTrigger) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	p.flushes[trigger]++
	p.stats.incFlushLocked()

	batch := p.buffer
	if len(batch) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.buffer = make([]*types.Record, 0, 128)
	p.recalculateBufferBytes()
	p.mu.Unlock()

	if err := p.sink.WriteRecords(ctx, batch); err != nil {
		p.mu.Lock()
		p.stats.incErrorsLocked()
		p.buffer = append(batch, p.buffer...)
		p.recalculateBufferBytes()
		p.mu.Unlock()
		p.logFlush(trigger, len(batch), err)
		return err
	}

	p.mu.Lock()
	p.stats.incPersistedLocked(int64(len(batch)))
	p.mu.Unlock()
	p.logFlush(trigger, len(batch), nil)
	return nil
}

// Close stops the interval goroutine, flushes, and closes the sink.
func (p *StreamingPolicy) Close() error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stopCh)
	}
	p.mu.Unlock()
	p.done.Wait()

	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns an atomic snapshot of policy statistics.
func (p *StreamingPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(p.bufferBytes)
}

// FlushTriggerStats returns per-trigger flush counts. Every trigger is
// present, with zero when it never fired.
func (p *StreamingPolicy) FlushTriggerStats() map[FlushTrigger]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[FlushTrigger]int64, len(flushTriggers))
	for _, t := range flushTriggers {
		out[t] = p.flushes[t]
	}
	return out
}

func (p *StreamingPolicy) intervalLoop() {
	defer p.done.Done()
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			hasData := len(p.buffer) > 0
			p.mu.Unlock()
			if hasData {
				// Interval flush errors are logged; the batch stays buffered.
				_ = p.triggerFlush(context.Background(), FlushTriggerInterval)
			}
		case <-p.stopCh:
			return
		}
	}
}

// recalculateBufferBytes recomputes bufferBytes. Caller must hold mu.
func (p *StreamingPolicy) recalculateBufferBytes() {
	var total int64
	for _, rec := range p.buffer {
		total += rec.EstimatedSize()
	}
	p.bufferBytes = total
	p.stats.setBufferSizeLocked(total)
}

func (p *StreamingPolicy) logFlush(trigger FlushTrigger, records int, err error) {
	if p.logger == nil {
		return
	}
	fields := map[string]any{
		"trigger": string(trigger),
		"records": records,
		"policy":  "streaming",
	}
	if err != nil {
		fields["error"] = err.Error()
		p.logger.Error("streaming flush failed", fields)
		return
	}
	p.logger.Debug("streaming flush", fields)
}

// Verify StreamingPolicy implements Policy.
var _ Policy = (*StreamingPolicy)(nil)
