package policy

import (
	"context"

	"github.com/pithecene-io/ddmscope/types"
)

// NoopPolicy accepts all records without persisting them. Used when no
// archive is configured.
//
// Stats keep droppable semantics: chunk records count as dropped, packet and
// fail records as persisted.
type NoopPolicy struct {
	stats *statsRecorder
}

// NewNoopPolicy creates a new no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: newStatsRecorder()}
}

// Ingest accepts the record but does not persist it.
func (p *NoopPolicy) Ingest(_ context.Context, rec *types.Record) error {
	p.stats.incTotal()
	if IsDroppable(rec.Kind) {
		p.stats.incDropped(rec.Kind)
	} else {
		p.stats.incPersisted(1)
	}
	return nil
}

// Flush is a no-op.
func (p *NoopPolicy) Flush(_ context.Context) error {
	p.stats.incFlush()
	return nil
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}

// Stats returns the policy statistics.
func (p *NoopPolicy) Stats() Stats {
	return p.stats.snapshot()
}

// Verify NoopPolicy implements Policy.
var _ Policy = (*NoopPolicy)(nil)
