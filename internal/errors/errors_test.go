package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestFastPathNoTelemetry(t *testing.T) {
	// Ensure no telemetry reporter is active
	SetTelemetryReporter(nil)

	// Create an error - should use fast path
	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.GetComponent() != "unknown" {
		t.Errorf("Expected component 'unknown' in fast path, got '%s'", ee.GetComponent())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic' in fast path, got '%s'", ee.Category)
	}
}

func TestBuilderFieldsSurvive(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := Newf("queue %s rejected", "mix").
		Component("pipeline").
		Category(CategoryPipeline).
		Context("stage", "producer").
		Priority(PriorityHigh).
		Build()

	if ee.GetComponent() != "pipeline" {
		t.Errorf("Expected component 'pipeline', got '%s'", ee.GetComponent())
	}
	if ee.Category != CategoryPipeline {
		t.Errorf("Expected pipeline category, got '%s'", ee.Category)
	}
	if ee.GetPriority() != PriorityHigh {
		t.Errorf("Expected high priority, got '%s'", ee.GetPriority())
	}
	if got := ee.GetContext()["stage"]; got != "producer" {
		t.Errorf("Expected stage context 'producer', got '%v'", got)
	}
}

func TestIsMatchesCategory(t *testing.T) {
	SetTelemetryReporter(nil)

	underflow := New(NewStd("render underflow")).Category(CategoryUnderflow).Build()
	other := New(NewStd("different message")).Category(CategoryUnderflow).Build()

	if !Is(underflow, other) {
		t.Error("Expected enhanced errors with the same category to match via Is")
	}
	if !IsCategory(underflow, CategoryUnderflow) {
		t.Error("Expected IsCategory to match the underflow category")
	}
	if IsCategory(underflow, CategoryClock) {
		t.Error("Expected IsCategory to reject a different category")
	}
}

func TestUnwrapReachesSentinel(t *testing.T) {
	SetTelemetryReporter(nil)

	sentinel := NewStd("sentinel")
	wrapped := New(fmt.Errorf("outer: %w", sentinel)).Category(CategoryGraph).Build()

	if !Is(wrapped, sentinel) {
		t.Error("Expected Is to find the sentinel through the enhanced error")
	}
}

func TestBasicScrub(t *testing.T) {
	// Query strings are dropped
	scrubbed := basicScrub("Error at https://api.example.com?api_key=secret123&token=abc")
	if want := "Error at https://api.example.com?[REDACTED]"; scrubbed != want {
		t.Errorf("URL scrubbing failed. Expected: %s, got: %s", want, scrubbed)
	}

	// Telemetry DSNs never leave the process
	scrubbed = basicScrub("sentry init failed for https://abc123def@o99.ingest.sentry.io/42")
	if strings.Contains(scrubbed, "abc123def") {
		t.Errorf("DSN scrubbing failed. Sensitive data still present: %s", scrubbed)
	}

	// Home directory user names are masked
	scrubbed = basicScrub("open /home/alice/music/take1.wav: permission denied")
	if strings.Contains(scrubbed, "alice") {
		t.Errorf("Home path scrubbing failed. User name still present: %s", scrubbed)
	}
}

func TestDetectCategoryHeuristics(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want ErrorCategory
	}{
		{name: "underflow", msg: "stage underflow at frame 480", want: CategoryUnderflow},
		{name: "clock", msg: "clock rate out of range", want: CategoryClock},
		{name: "graph cycle", msg: "connection would create a cycle", want: CategoryGraph},
		{name: "parse", msg: "failed to parse header", want: CategoryFileParsing},
		{name: "file", msg: "cannot open file", want: CategoryFileIO},
		{name: "validation", msg: "format mismatch between stages", want: CategoryValidation},
		{name: "fallback", msg: "something else entirely", want: CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectCategory(NewStd(tt.msg), "")
			if got != tt.want {
				t.Errorf("detectCategory(%q) = %s, want %s", tt.msg, got, tt.want)
			}
		})
	}
}
