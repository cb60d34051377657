package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
	if tracker.Last() != 50*time.Millisecond {
		t.Fatalf("expected last sample 50ms, got %v", tracker.Last())
	}
}

func TestLatencyTrackerBoundedSize(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	if min := tracker.Percentile(0); min != 7*time.Millisecond {
		t.Fatalf("expected oldest retained sample 7ms, got %v", min)
	}
	if tracker.Last() != 9*time.Millisecond {
		t.Fatalf("expected last sample 9ms, got %v", tracker.Last())
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(0)
	if tracker.Percentile(50) != 0 || tracker.Last() != 0 {
		t.Fatalf("expected zero values for empty tracker")
	}
}
