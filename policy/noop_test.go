package policy_test

import (
	"testing"

	"github.com/pithecene-io/ddmscope/policy"
	"github.com/pithecene-io/ddmscope/types"
)

func TestNoopPolicy_Stats(t *testing.T) {
	pol := policy.NewNoopPolicy()

	_ = pol.Ingest(t.Context(), packetRecord(1))
	_ = pol.Ingest(t.Context(), chunkRecord(1, 0))
	_ = pol.Ingest(t.Context(), chunkRecord(1, 1))
	_ = pol.Ingest(t.Context(), failRecord(1))

	s := pol.Stats()
	if s.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d, want 4", s.TotalRecords)
	}
	if s.RecordsPersisted != 2 {
		t.Errorf("RecordsPersisted = %d, want 2", s.RecordsPersisted)
	}
	if s.RecordsDropped != 2 || s.DroppedByKind[types.RecordKindChunk] != 2 {
		t.Errorf("dropped = %d / %v", s.RecordsDropped, s.DroppedByKind)
	}
}

func TestIsDroppable(t *testing.T) {
	if !policy.IsDroppable(types.RecordKindChunk) {
		t.Error("chunk records must be droppable")
	}
	for _, k := range []types.RecordKind{types.RecordKindPacket, types.RecordKindFail} {
		if policy.IsDroppable(k) {
			t.Errorf("%s records must not be droppable", k)
		}
	}
}
