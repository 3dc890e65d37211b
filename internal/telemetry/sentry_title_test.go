package telemetry

import (
	"errors"
	"strings"
	"testing"
)

func TestParseErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		errMsg string
		want   string
	}{
		{
			name:   "nil pointer dereference",
			errMsg: "runtime error: invalid memory address or nil pointer dereference",
			want:   "Nil Pointer Dereference",
		},
		{
			name:   "index out of range",
			errMsg: "runtime error: index out of range [5] with length 3",
			want:   "Index Out of Range",
		},
		{
			name:   "slice bounds",
			errMsg: "runtime error: slice bounds out of range [:10] with capacity 4",
			want:   "Slice Bounds Out of Range",
		},
		{
			name:   "divide by zero",
			errMsg: "runtime error: integer divide by zero",
			want:   "Integer Divide by Zero",
		},
		{
			name:   "send on closed channel",
			errMsg: "send on closed channel",
			want:   "Send on Closed Channel",
		},
		{
			name:   "concurrent map read and write",
			errMsg: "fatal error: concurrent map read and map write",
			want:   "Concurrent Map Access",
		},
		{
			name:   "concurrent map write",
			errMsg: "fatal error: concurrent map writes",
			want:   "Concurrent Map Write",
		},
		{
			name:   "nil interface conversion",
			errMsg: "interface conversion: interface {} is nil, not string",
			want:   "Interface Conversion: Nil Value",
		},
		{
			name:   "panic prefix",
			errMsg: "panic: queue closed during advance",
			want:   "Panic: queue closed during advance",
		},
		{
			name:   "short message passes through",
			errMsg: "packet queue is closed",
			want:   "packet queue is closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseErrorType(tt.errMsg); got != tt.want {
				t.Errorf("parseErrorType(%q) = %q, want %q", tt.errMsg, got, tt.want)
			}
		})
	}
}

func TestParseErrorTypeTruncation(t *testing.T) {
	t.Parallel()

	t.Run("long message truncated", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("x", 100)
		got := parseErrorType(long)
		if len(got) != 63 { // 60 chars + "..."
			t.Errorf("len = %d, want 63", len(got))
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("want ... suffix, got %q", got)
		}
	})

	t.Run("long panic message truncated", func(t *testing.T) {
		t.Parallel()

		long := "panic: " + strings.Repeat("y", 80)
		got := parseErrorType(long)
		if !strings.HasPrefix(got, "Panic: ") {
			t.Errorf("want Panic: prefix, got %q", got)
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("want ... suffix, got %q", got)
		}
	})
}

func TestTitleCaseComponent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		component string
		want      string
	}{
		{name: "single word", component: "datastore", want: "Datastore"},
		{name: "snake case", component: "packet_queue", want: "Packet Queue"},
		{name: "db abbreviation", component: "db_journal", want: "DB Journal"},
		{name: "io abbreviation", component: "file_io", want: "File IO"},
		{name: "io substring untouched", component: "configuration", want: "Configuration"},
		{name: "clock", component: "clock", want: "Clock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := titleCaseComponent(tt.component); got != tt.want {
				t.Errorf("titleCaseComponent(%q) = %q, want %q", tt.component, got, tt.want)
			}
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	t.Run("component prefixes title", func(t *testing.T) {
		t.Parallel()

		err := errors.New("runtime error: integer divide by zero")
		got := generateErrorTitle(err, "pipeline")
		if got != "Pipeline: Integer Divide by Zero" {
			t.Errorf("generateErrorTitle = %q", got)
		}
	})

	t.Run("unknown component omitted", func(t *testing.T) {
		t.Parallel()

		err := errors.New("runtime error: integer divide by zero")
		got := generateErrorTitle(err, "unknown")
		if got != "Integer Divide by Zero" {
			t.Errorf("generateErrorTitle = %q", got)
		}
	})

	t.Run("empty component omitted", func(t *testing.T) {
		t.Parallel()

		err := errors.New("clock realm mismatch")
		got := generateErrorTitle(err, "")
		if got != "clock realm mismatch" {
			t.Errorf("generateErrorTitle = %q", got)
		}
	})
}
