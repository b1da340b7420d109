package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/ddmscope/metrics"
)

// Report is the structured JSON report written by --report.
type Report struct {
	SessionID  string    `json:"session_id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message"`
	ExitCode   int       `json:"exit_code"`
	DurationMs int64     `json:"duration_ms"`
	Counts     Counts    `json:"counts"`

	Policy  *ReportPolicy     `json:"policy"`
	Metrics *metrics.Snapshot `json:"metrics"`

	// StoragePath is the archive location of the session, if archived.
	StoragePath string `json:"storage_path,omitempty"`
}

// ReportPolicy holds policy stats in the report.
type ReportPolicy struct {
	Name             string           `json:"name"`
	RecordsReceived  int64            `json:"records_received"`
	RecordsPersisted int64            `json:"records_persisted"`
	RecordsDropped   int64            `json:"records_dropped"`
	FlushTriggers    map[string]int64 `json:"flush_triggers,omitempty"`
}

// BuildReport composes a Report from a Result and metrics snapshot.
// The policyName is the policy name string (e.g. "strict", "buffered", "streaming").
func BuildReport(result *Result, snap metrics.Snapshot, policyName string) *Report {
	return &Report{
		SessionID:  result.Meta.SessionID,
		Source:     result.Meta.Source,
		StartedAt:  result.Meta.StartedAt,
		Outcome:    result.Outcome,
		Message:    result.Message,
		ExitCode:   result.Outcome.ExitCode(),
		DurationMs: result.Duration.Milliseconds(),
		Counts:     result.Counts,
		Policy: &ReportPolicy{
			Name:             policyName,
			RecordsReceived:  result.PolicyStats.TotalRecords,
			RecordsPersisted: result.PolicyStats.RecordsPersisted,
			RecordsDropped:   result.PolicyStats.RecordsDropped,
			FlushTriggers:    result.FlushTriggers,
		},
		Metrics: &snap,
	}
}

// WriteReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteReport(report *Report, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := MarshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeReportTo writes report JSON to any writer.
func writeReportTo(report *Report, w io.Writer) error {
	data, err := MarshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func MarshalReport(report *Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
