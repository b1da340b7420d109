package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/policy"
	"github.com/pithecene-io/ddmscope/types"
)

func testMeta() *types.SessionMeta {
	return types.NewSessionMeta("s-1", "test.jdwp", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestRun_Completed(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewStreamingPolicy(sink, policy.StreamingConfig{FlushCount: 100})
	if err != nil {
		t.Fatalf("NewStreamingPolicy: %v", err)
	}
	collector := metrics.NewCollector("test.jdwp", "streaming", "", "s-1")

	result, err := Run(t.Context(), &Config{
		Meta:      testMeta(),
		Input:     bytes.NewReader(sampleStream(t, false)),
		Options:   Options{ExpandChunks: true},
		Policy:    pol,
		Collector: collector,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Outcome != OutcomeCompleted {
		t.Errorf("Outcome = %s, want completed (%s)", result.Outcome, result.Message)
	}
	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	// The final flush persists everything below the count threshold.
	if sink.Stats().RecordsWritten != 6 {
		t.Errorf("RecordsWritten = %d, want 6", sink.Stats().RecordsWritten)
	}
	if result.PolicyStats.RecordsPersisted != 6 {
		t.Errorf("RecordsPersisted = %d, want 6", result.PolicyStats.RecordsPersisted)
	}
	if result.FlushTriggers["termination"] != 1 {
		t.Errorf("FlushTriggers = %v, want one termination flush", result.FlushTriggers)
	}

	snap := collector.Snapshot()
	if snap.SessionsStarted != 1 || snap.SessionsCompleted != 1 || snap.SessionsFailed != 0 {
		t.Errorf("session counters = %d/%d/%d", snap.SessionsStarted, snap.SessionsCompleted, snap.SessionsFailed)
	}
	if snap.RecordsReceived != 6 || snap.RecordsPersisted != 6 {
		t.Errorf("absorbed records = %d/%d, want 6/6", snap.RecordsReceived, snap.RecordsPersisted)
	}
}

func TestRun_DecodeError(t *testing.T) {
	data := sampleStream(t, false)
	sink := policy.NewStubSink()
	collector := metrics.NewCollector("test.jdwp", "strict", "", "s-1")

	result, err := Run(t.Context(), &Config{
		Meta:      testMeta(),
		Input:     bytes.NewReader(data[:len(data)-3]),
		Policy:    policy.NewStrictPolicy(sink),
		Collector: collector,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != OutcomeDecodeError {
		t.Errorf("Outcome = %s, want decode_error", result.Outcome)
	}
	if result.Outcome.ExitCode() != ExitCodeDecodeError {
		t.Errorf("ExitCode = %d", result.Outcome.ExitCode())
	}
	if !IsStreamError(result.Err) {
		t.Errorf("Err = %v, want stream error", result.Err)
	}
	if sink.Stats().RecordsWritten != 2 {
		t.Errorf("records before the error = %d, want 2", sink.Stats().RecordsWritten)
	}
	if collector.Snapshot().SessionsFailed != 1 {
		t.Error("expected failed session counter")
	}
}

func TestRun_FlushFailureIsPolicyFailure(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.DefaultBufferedConfig())
	if err != nil {
		t.Fatalf("NewBufferedPolicy: %v", err)
	}
	sink.SetError(errors.New("bucket gone"))

	result, err := Run(t.Context(), &Config{
		Meta:   testMeta(),
		Input:  bytes.NewReader(sampleStream(t, false)),
		Policy: pol,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != OutcomePolicyFailure {
		t.Errorf("Outcome = %s, want policy_failure", result.Outcome)
	}
	if result.Outcome.ExitCode() != ExitCodePolicyFailure {
		t.Errorf("ExitCode = %d", result.Outcome.ExitCode())
	}
}

func TestRun_CanceledStillFlushes(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewBufferedPolicy(sink, policy.DefaultBufferedConfig())
	if err != nil {
		t.Fatalf("NewBufferedPolicy: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	var seen int
	result, err := Run(ctx, &Config{
		Meta:   testMeta(),
		Input:  bytes.NewReader(sampleStream(t, false)),
		Policy: pol,
		Observer: func(*types.Record) {
			seen++
			if seen == 1 {
				cancel()
			}
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != OutcomeCanceled {
		t.Errorf("Outcome = %s, want canceled", result.Outcome)
	}
	if sink.Stats().RecordsWritten != 1 {
		t.Errorf("RecordsWritten = %d, want the one record ingested before cancel", sink.Stats().RecordsWritten)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil", nil},
		{"no meta", &Config{Input: bytes.NewReader(nil), Policy: policy.NewNoopPolicy()}},
		{"no input", &Config{Meta: testMeta(), Policy: policy.NewNoopPolicy()}},
		{"no policy", &Config{Meta: testMeta(), Input: bytes.NewReader(nil)}},
		{"negative limit", &Config{
			Meta: testMeta(), Input: bytes.NewReader(nil), Policy: policy.NewNoopPolicy(),
			Options: Options{MaxPackets: -1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(t.Context(), tt.cfg); err == nil {
				t.Error("expected config error")
			}
		})
	}
}

func TestDetermineOutcome(t *testing.T) {
	streamErr := &Error{Kind: ErrorStream, Err: errors.New("bad header")}
	policyErr := &Error{Kind: ErrorPolicy, Err: errors.New("full")}
	canceledErr := &Error{Kind: ErrorCanceled, Err: context.Canceled}
	flushErr := errors.New("flush")

	tests := []struct {
		name     string
		runErr   error
		flushErr error
		want     Outcome
	}{
		{"clean", nil, nil, OutcomeCompleted},
		{"flush only", nil, flushErr, OutcomePolicyFailure},
		{"stream", streamErr, nil, OutcomeDecodeError},
		{"stream and flush", streamErr, flushErr, OutcomeDecodeError},
		{"policy", policyErr, nil, OutcomePolicyFailure},
		{"canceled", canceledErr, flushErr, OutcomeCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := DetermineOutcome(tt.runErr, tt.flushErr)
			if got != tt.want {
				t.Errorf("DetermineOutcome = %s, want %s", got, tt.want)
			}
			if msg == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestOutcome_ExitCode(t *testing.T) {
	tests := map[Outcome]int{
		OutcomeCompleted:     0,
		OutcomeDecodeError:   1,
		OutcomePolicyFailure: 2,
		OutcomeCanceled:      130,
	}
	for outcome, want := range tests {
		if got := outcome.ExitCode(); got != want {
			t.Errorf("%s.ExitCode() = %d, want %d", outcome, got, want)
		}
	}
}
