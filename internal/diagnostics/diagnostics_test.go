package diagnostics

import (
	"strings"
	"testing"
)

func TestCapture(t *testing.T) {
	t.Parallel()

	s := Capture()

	if s.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if !strings.HasPrefix(s.GoVersion, "go") {
		t.Errorf("GoVersion = %q, want go prefix", s.GoVersion)
	}
	if s.OS == "" || s.Architecture == "" {
		t.Errorf("platform fields empty: OS=%q Architecture=%q", s.OS, s.Architecture)
	}
	if s.NumCPU < 1 {
		t.Errorf("NumCPU = %d, want >= 1", s.NumCPU)
	}
	if s.NumGoroutine < 1 {
		t.Errorf("NumGoroutine = %d, want >= 1", s.NumGoroutine)
	}
	if s.HeapAllocMB <= 0 {
		t.Errorf("HeapAllocMB = %f, want > 0", s.HeapAllocMB)
	}

	// Platform collectors are best effort, values must never go negative
	if s.ProcessRSSMB < 0 || s.ProcessCPUPct < 0 || s.HostMemUsedPct < 0 {
		t.Errorf("negative resource values: %+v", s)
	}
}

func TestLogAttrs(t *testing.T) {
	t.Parallel()

	attrs := Snapshot{NumGoroutine: 7, HeapAllocMB: 1.2345}.LogAttrs()

	if len(attrs)%2 != 0 {
		t.Fatalf("LogAttrs length %d, want even", len(attrs))
	}

	got := map[string]any{}
	for i := 0; i < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			t.Fatalf("attr key %v is not a string", attrs[i])
		}
		got[key] = attrs[i+1]
	}

	if got["goroutines"] != 7 {
		t.Errorf("goroutines = %v, want 7", got["goroutines"])
	}
	if got["heap_alloc_mb"] != 1.23 {
		t.Errorf("heap_alloc_mb = %v, want 1.23 (rounded)", got["heap_alloc_mb"])
	}
}
