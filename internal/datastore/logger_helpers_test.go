package datastore

import (
	"errors"
	"testing"
)

func TestParseSQLOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sql       string
		wantOp    string
		wantTable string
	}{
		{"select", "SELECT * FROM mix_runs WHERE id = 1", "select", "mix_runs"},
		{"select quoted", "SELECT run_id FROM `underflow_events` LIMIT 5", "select", "underflow_events"},
		{"insert", "INSERT INTO mix_runs (run_id) VALUES ('abc')", "insert", "mix_runs"},
		{"update", "UPDATE underflow_events SET stage = 'x'", "update", "underflow_events"},
		{"delete", "DELETE FROM underflow_events WHERE mix_run_id = 3", "delete", "underflow_events"},
		{"create", "CREATE TABLE IF NOT EXISTS mix_runs (id integer)", "create", "mix_runs"},
		{"drop", "DROP TABLE IF EXISTS mix_runs", "drop", "mix_runs"},
		{"alter", "ALTER TABLE mix_runs ADD COLUMN note text", "alter", "mix_runs"},
		{"lowercase", "select id from mix_runs", "select", "mix_runs"},
		{"leading whitespace", "   SELECT id FROM mix_runs", "select", "mix_runs"},
		{"pragma", "PRAGMA table_info('mix_runs')", sqlUnknown, sqlUnknown},
		{"empty", "", sqlUnknown, sqlUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			op, table := parseSQLOperation(tt.sql)
			if op != tt.wantOp || table != tt.wantTable {
				t.Errorf("parseSQLOperation(%q) = (%q, %q), want (%q, %q)",
					tt.sql, op, table, tt.wantOp, tt.wantTable)
			}
		})
	}
}

func TestCategorizeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"unique constraint", errors.New("UNIQUE constraint failed: mix_runs.run_id"), "constraint_violation"},
		{"duplicate key", errors.New("duplicate key value violates unique constraint"), "constraint_violation"},
		{"locked", errors.New("database is locked"), "database_locked"},
		{"foreign key", errors.New("FOREIGN KEY constraint failed"), "foreign_key_violation"},
		{"timeout", errors.New("query timeout exceeded"), "timeout"},
		{"disk", errors.New("write failed: no space left on device"), "disk_full"},
		{"other", errors.New("something odd"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := categorizeError(tt.err); got != tt.want {
				t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
