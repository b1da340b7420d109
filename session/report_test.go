package session

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/policy"
)

func newTestResult() *Result {
	return &Result{
		Meta:     testMeta(),
		Outcome:  OutcomeCompleted,
		Message:  "session completed",
		Duration: 1500 * time.Millisecond,
		Counts:   Counts{Packets: 10, Chunks: 4, FailChunks: 1},
		PolicyStats: policy.Stats{
			TotalRecords:     15,
			RecordsPersisted: 15,
		},
		FlushTriggers: map[string]int64{"count": 1, "termination": 1},
	}
}

func newTestSnapshot() metrics.Snapshot {
	return metrics.Snapshot{
		SessionsStarted:   1,
		SessionsCompleted: 1,
		Packets:           10,
		Chunks:            4,
		ChunksByType:      map[string]int64{"HELO": 3, "FAIL": 1},
		FailChunks:        1,
		Policy:            "streaming",
		StorageBackend:    "fs",
		SessionID:         "s-1",
	}
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(newTestResult(), newTestSnapshot(), "streaming")

	if report.SessionID != "s-1" {
		t.Errorf("SessionID = %q, want %q", report.SessionID, "s-1")
	}
	if report.Source != "test.jdwp" {
		t.Errorf("Source = %q", report.Source)
	}
	if report.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", report.ExitCode)
	}
	if report.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", report.DurationMs)
	}
	if report.Counts.Packets != 10 || report.Counts.FailChunks != 1 {
		t.Errorf("Counts = %+v", report.Counts)
	}
	if report.Policy.Name != "streaming" || report.Policy.RecordsPersisted != 15 {
		t.Errorf("Policy = %+v", report.Policy)
	}
	if report.Policy.FlushTriggers["count"] != 1 {
		t.Errorf("FlushTriggers = %v", report.Policy.FlushTriggers)
	}
	if report.Metrics.ChunksByType["HELO"] != 3 {
		t.Errorf("Metrics.ChunksByType = %v", report.Metrics.ChunksByType)
	}
}

func TestBuildReport_FailureExitCode(t *testing.T) {
	result := newTestResult()
	result.Outcome = OutcomePolicyFailure
	report := BuildReport(result, newTestSnapshot(), "strict")
	if report.ExitCode != ExitCodePolicyFailure {
		t.Errorf("ExitCode = %d, want %d", report.ExitCode, ExitCodePolicyFailure)
	}
}

func TestWriteReportTo_JSONShape(t *testing.T) {
	report := BuildReport(newTestResult(), newTestSnapshot(), "streaming")

	var buf bytes.Buffer
	if err := writeReportTo(report, &buf); err != nil {
		t.Fatalf("writeReportTo: %v", err)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		t.Error("report must end with a newline")
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"session_id", "source", "started_at", "outcome", "exit_code", "duration_ms", "counts", "policy", "metrics"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if _, ok := decoded["storage_path"]; ok {
		t.Error("storage_path must be omitted when empty")
	}
	if decoded["outcome"] != "completed" {
		t.Errorf("outcome = %v", decoded["outcome"])
	}
}

func TestWriteReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := BuildReport(newTestResult(), newTestSnapshot(), "streaming")
	report.StoragePath = "datasets/ddmscope/partitions/source=test.jdwp"

	if err := WriteReport(report, path); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.StoragePath != report.StoragePath {
		t.Errorf("StoragePath = %q", decoded.StoragePath)
	}
}

func TestWriteReport_EmptyPath(t *testing.T) {
	if err := WriteReport(&Report{}, ""); err == nil {
		t.Error("expected error for empty path")
	}
}
