package policy_test

import (
	"errors"
	"testing"

	"github.com/pithecene-io/ddmscope/policy"
)

func TestStrictPolicy_WritesImmediately(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	for i := int64(1); i <= 3; i++ {
		if err := pol.Ingest(t.Context(), packetRecord(i)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	s := sink.Stats()
	if s.RecordsWritten != 3 || s.Batches != 3 {
		t.Errorf("sink = %+v, want 3 records in 3 batches", s)
	}
	stats := pol.Stats()
	if stats.TotalRecords != 3 || stats.RecordsPersisted != 3 || stats.RecordsDropped != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStrictPolicy_NeverDropsChunks(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	_ = pol.Ingest(t.Context(), chunkRecord(1, 0))
	if got := sink.Stats().RecordsWritten; got != 1 {
		t.Errorf("RecordsWritten = %d, want 1", got)
	}
}

func TestStrictPolicy_SinkErrorFails(t *testing.T) {
	sink := policy.NewStubSink()
	sinkErr := errors.New("disk full")
	sink.SetError(sinkErr)
	pol := policy.NewStrictPolicy(sink)

	if err := pol.Ingest(t.Context(), packetRecord(1)); !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	stats := pol.Stats()
	if stats.Errors != 1 || stats.RecordsPersisted != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStrictPolicy_CloseClosesSink(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := pol.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sink.Stats().Closed {
		t.Error("sink not closed")
	}
	if pol.Stats().FlushCount != 1 {
		t.Errorf("FlushCount = %d, want 1", pol.Stats().FlushCount)
	}
}
