package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tphakala/mixcore/internal/privacy"
)

func TestLoadOrCreateSystemID(t *testing.T) {
	t.Parallel()

	t.Run("creates and persists a new ID", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		id, err := LoadOrCreateSystemID(dir)
		if err != nil {
			t.Fatalf("LoadOrCreateSystemID() error: %v", err)
		}
		if !privacy.IsValidSystemID(id) {
			t.Errorf("generated ID %q is not valid", id)
		}

		data, err := os.ReadFile(filepath.Join(dir, ".system_id"))
		if err != nil {
			t.Fatalf("ID file not written: %v", err)
		}
		if string(data) != id {
			t.Errorf("persisted ID %q differs from returned %q", data, id)
		}
	})

	t.Run("returns the stored ID on subsequent calls", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		first, err := LoadOrCreateSystemID(dir)
		if err != nil {
			t.Fatalf("first call error: %v", err)
		}
		second, err := LoadOrCreateSystemID(dir)
		if err != nil {
			t.Fatalf("second call error: %v", err)
		}
		if first != second {
			t.Errorf("ID changed between calls: %q then %q", first, second)
		}
	})

	t.Run("replaces a corrupted ID file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		idFile := filepath.Join(dir, ".system_id")
		if err := os.WriteFile(idFile, []byte("not-a-valid-id"), 0o644); err != nil {
			t.Fatal(err)
		}

		id, err := LoadOrCreateSystemID(dir)
		if err != nil {
			t.Fatalf("LoadOrCreateSystemID() error: %v", err)
		}
		if !privacy.IsValidSystemID(id) {
			t.Errorf("regenerated ID %q is not valid", id)
		}
		if id == "not-a-valid-id" {
			t.Error("corrupted ID was returned unchanged")
		}
	})

	t.Run("tolerates surrounding whitespace", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		idFile := filepath.Join(dir, ".system_id")
		if err := os.WriteFile(idFile, []byte("  A1B2-C3D4-E5F6\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		id, err := LoadOrCreateSystemID(dir)
		if err != nil {
			t.Fatalf("LoadOrCreateSystemID() error: %v", err)
		}
		if id != "A1B2-C3D4-E5F6" {
			t.Errorf("got %q, want trimmed stored ID", id)
		}
	})

	t.Run("creates missing config directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "config")

		id, err := LoadOrCreateSystemID(dir)
		if err != nil {
			t.Fatalf("LoadOrCreateSystemID() error: %v", err)
		}
		if !privacy.IsValidSystemID(id) {
			t.Errorf("generated ID %q is not valid", id)
		}
	})
}
