package archive

import (
	"errors"
	"testing"

	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/policy"
	"github.com/pithecene-io/ddmscope/types"
)

func TestInstrumentedSink_CountsPerCall(t *testing.T) {
	inner := policy.NewStubSink()
	collector := metrics.NewCollector("capture.bin", "strict", "fs", "s-1")
	sink := NewInstrumentedSink(inner, collector)

	batch := []*types.Record{{Kind: types.RecordKindChunk, Chunk: &types.ChunkRecord{Type: "HELO"}}}
	for range 2 {
		if err := sink.WriteRecords(t.Context(), batch); err != nil {
			t.Fatalf("WriteRecords: %v", err)
		}
	}
	inner.SetError(errors.New("boom"))
	if err := sink.WriteRecords(t.Context(), batch); err == nil {
		t.Fatal("expected inner error")
	}

	s := collector.Snapshot()
	if s.ArchiveWriteSuccess != 2 || s.ArchiveWriteFailure != 1 {
		t.Errorf("success/failure = %d/%d, want 2/1", s.ArchiveWriteSuccess, s.ArchiveWriteFailure)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !inner.Stats().Closed {
		t.Error("inner sink not closed")
	}
}

func TestInstrumentedSink_NilCollector(t *testing.T) {
	sink := NewInstrumentedSink(policy.NewStubSink(), nil)
	if err := sink.WriteRecords(t.Context(), nil); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
}
