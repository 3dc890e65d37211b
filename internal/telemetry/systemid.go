package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/mixcore/internal/privacy"
)

// LoadOrCreateSystemID loads an existing system ID from the config directory
// or creates and persists a new one. The ID groups telemetry events from one
// install without identifying the host.
func LoadOrCreateSystemID(configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	idFile := filepath.Join(configDir, ".system_id")

	if data, err := os.ReadFile(idFile); err == nil { //nolint:gosec // G304: path is under the config directory
		id := strings.TrimSpace(string(data))
		if id != "" && privacy.IsValidSystemID(id) {
			return id, nil
		}
		logTelemetryWarn(nil, "stored system ID invalid, generating a new one", "path", idFile)
	}

	id, err := privacy.GenerateSystemID()
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(idFile, []byte(id), 0o644); err != nil { //nolint:gosec // G306: the ID is not a secret
		return "", fmt.Errorf("failed to save system ID: %w", err)
	}

	return id, nil
}
