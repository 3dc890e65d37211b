package validate

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mixcore/internal/conf"
	"github.com/tphakala/mixcore/internal/errors"
)

const sampleTopology = `nodes:
  - name: mic
    kind: producer
    format: float32:48000:2
  - name: aux
    kind: producer
    format: float32:48000:2
  - name: mix
    kind: mixer
    format: float32:48000:2
  - name: out
    kind: consumer
    format: float32:48000:2
edges:
  - from: mic
    to: mix
  - from: aux
    to: mix
  - from: mix
    to: out
`

func writeTopology(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRunReportsRoutes(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, run(&out, writeTopology(t, sampleTopology)))

	report := out.String()
	assert.Contains(t, report, "4 nodes")
	assert.Contains(t, report, "mic -> out: reachable")
	assert.Contains(t, report, "aux -> out: reachable")
	assert.Contains(t, report, "ok")
}

func TestRunRejectsCycle(t *testing.T) {
	t.Parallel()

	doc := `nodes:
  - name: a
    kind: mixer
  - name: b
    kind: mixer
edges:
  - from: a
    to: b
  - from: b
    to: a
`
	var out bytes.Buffer
	err := run(&out, writeTopology(t, doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestRunMissingFile(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(&out, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestCommandRequiresPath(t *testing.T) {
	t.Parallel()

	cmd := Command(&conf.Settings{})
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestCommandValidatesArgument(t *testing.T) {
	t.Parallel()

	cmd := Command(&conf.Settings{})
	cmd.SetArgs([]string{writeTopology(t, sampleTopology)})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	require.NoError(t, cmd.Execute())
}
