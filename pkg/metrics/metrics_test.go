package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManagerRegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("test"),
		WithSubsystem("ranking"),
		WithRegistry(reg),
	)
	if m == nil {
		t.Fatal("expected a manager")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metrics")
	}
	for _, mf := range families {
		if got := mf.GetName(); len(got) < len("test_") || got[:5] != "test_" {
			t.Errorf("metric %q missing test_ prefix", got)
		}
	}
}

func TestGlobalHelpers(t *testing.T) {
	// Helpers must not panic on the global manager.
	RecordSubmission()
	RecordSubmissionRejected()
	RecordSubmissionImproved()
	UpdateIndexKeys(3)
	UpdateIndexEntries(42)
	RecordIndexUpdateLatency(1.5)
	RecordIndexQueryLatency(0.5)
	RecordWindowEvicted()
	RecordBroadcastDelivered()
	RecordBroadcastDropped()
	UpdateLiveSubscribers(2)
	RecordReplayRow()
	RecordReplayError()
	RecordScorelogAppend()
	RecordScorelogError()
	RecordHTTPRequest("scores", "POST", "200")
	RecordHTTPRequestDuration("scores", "POST", "200", 2.0)

	if GetRegistry() == nil {
		t.Fatal("expected a registry")
	}
}
