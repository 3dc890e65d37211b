package metrics

import (
	"testing"
)

// TestRecordOperation verifies RecordOperation functionality of TestRecorder.
func TestRecordOperation(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	recorder.RecordOperation("db_insert:mix_runs", "success")
	recorder.RecordOperation("db_insert:mix_runs", "success")
	recorder.RecordOperation("db_insert:mix_runs", "error")
	recorder.RecordOperation("db_query:underflow_events", "success")

	if count := recorder.GetOperationCount("db_insert:mix_runs", "success"); count != 2 {
		t.Errorf("expected 2 successful inserts, got %d", count)
	}
	if count := recorder.GetOperationCount("db_insert:mix_runs", "error"); count != 1 {
		t.Errorf("expected 1 failed insert, got %d", count)
	}
	if count := recorder.GetOperationCount("db_query:underflow_events", "success"); count != 1 {
		t.Errorf("expected 1 successful query, got %d", count)
	}
	if count := recorder.GetOperationCount("db_query:underflow_events", "error"); count != 0 {
		t.Errorf("expected 0 failed queries, got %d", count)
	}
}

// TestRecordDuration verifies RecordDuration functionality of TestRecorder.
func TestRecordDuration(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	recorder.RecordDuration("db_insert:mix_runs", 0.123)
	recorder.RecordDuration("db_insert:mix_runs", 0.456)
	recorder.RecordDuration("transaction", 0.789)

	insertDurations := recorder.GetDurations("db_insert:mix_runs")
	if len(insertDurations) != 2 {
		t.Fatalf("expected 2 insert durations, got %d", len(insertDurations))
	}
	if insertDurations[0] != 0.123 || insertDurations[1] != 0.456 {
		t.Errorf("unexpected insert durations: %v", insertDurations)
	}

	txDurations := recorder.GetDurations("transaction")
	if len(txDurations) != 1 {
		t.Fatalf("expected 1 transaction duration, got %d", len(txDurations))
	}
	if txDurations[0] != 0.789 {
		t.Errorf("expected transaction duration 0.789, got %f", txDurations[0])
	}

	// Test non-existent operation
	if durations := recorder.GetDurations("non_existent"); durations != nil {
		t.Errorf("expected nil for non-existent operation, got %v", durations)
	}
}

// TestRecordError verifies RecordError functionality of TestRecorder.
func TestRecordError(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	recorder.RecordError("db_insert:mix_runs", "constraint")
	recorder.RecordError("db_insert:mix_runs", "constraint")
	recorder.RecordError("db_insert:mix_runs", "io")
	recorder.RecordError("db_query:mix_runs", "timeout")

	if count := recorder.GetErrorCount("db_insert:mix_runs", "constraint"); count != 2 {
		t.Errorf("expected 2 constraint errors, got %d", count)
	}
	if count := recorder.GetErrorCount("db_insert:mix_runs", "io"); count != 1 {
		t.Errorf("expected 1 io error, got %d", count)
	}
	if count := recorder.GetErrorCount("db_query:mix_runs", "timeout"); count != 1 {
		t.Errorf("expected 1 timeout error, got %d", count)
	}
	if count := recorder.GetErrorCount("db_query:mix_runs", "connection"); count != 0 {
		t.Errorf("expected 0 connection errors, got %d", count)
	}
}

// TestRecorderThreadSafety verifies thread safety of TestRecorder.
func TestRecorderThreadSafety(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	done := make(chan bool)
	numGoroutines := 10
	opsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < opsPerGoroutine; j++ {
				recorder.RecordOperation("concurrent", "success")
				recorder.RecordDuration("concurrent", 0.001)
				recorder.RecordError("concurrent", "test")
			}
			done <- true
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	expectedCount := numGoroutines * opsPerGoroutine
	if count := recorder.GetOperationCount("concurrent", "success"); count != expectedCount {
		t.Errorf("expected %d operations after concurrent access, got %d", expectedCount, count)
	}
	if durations := recorder.GetDurations("concurrent"); len(durations) != expectedCount {
		t.Errorf("expected %d durations after concurrent access, got %d", expectedCount, len(durations))
	}
	if count := recorder.GetErrorCount("concurrent", "test"); count != expectedCount {
		t.Errorf("expected %d errors after concurrent access, got %d", expectedCount, count)
	}
}

// TestNoOpRecorder verifies that the NoOpRecorder correctly implements the Recorder interface.
func TestNoOpRecorder(t *testing.T) {
	t.Parallel()

	recorder := NewNoOpRecorder()

	// These operations should not panic and should do nothing
	recorder.RecordOperation("test", "success")
	recorder.RecordDuration("test", 0.123)
	recorder.RecordError("test", "error")
}

// TestRecorderWithRealMetrics verifies that real metrics types implement the Recorder interface.
func TestRecorderWithRealMetrics(t *testing.T) {
	t.Parallel()

	t.Run("DatastoreMetrics", func(t *testing.T) {
		var _ Recorder = (*DatastoreMetrics)(nil)
	})

	t.Run("NoOpRecorder", func(t *testing.T) {
		var _ Recorder = (*NoOpRecorder)(nil)
	})
}

// TestParseTableFromOperation verifies operation name parsing for the
// "operation:table" convention.
func TestParseTableFromOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		operation string
		wantOp    string
		wantTable string
	}{
		{"insert with table", "db_insert:mix_runs", "db_insert", "mix_runs"},
		{"query with table", "db_query:underflow_events", "db_query", "underflow_events"},
		{"no table", "db_query", "db_query", LabelUnknown},
		{"transaction", "transaction", "transaction", LabelUnknown},
		{"extra colons keep tail", "db_query:a:b", "db_query", "a:b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			op, table := parseTableFromOperation(tt.operation)
			if op != tt.wantOp || table != tt.wantTable {
				t.Errorf("parseTableFromOperation(%q) = (%q, %q), want (%q, %q)",
					tt.operation, op, table, tt.wantOp, tt.wantTable)
			}
		})
	}
}

// BenchmarkTestRecorder benchmarks the TestRecorder implementation.
func BenchmarkTestRecorder(b *testing.B) {
	recorder := NewTestRecorder()

	b.Run("RecordOperation", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			recorder.RecordOperation("bench", "success")
		}
	})

	b.Run("RecordDuration", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			recorder.RecordDuration("bench", 0.123)
		}
	})

	b.Run("RecordError", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			recorder.RecordError("bench", "error")
		}
	})
}
