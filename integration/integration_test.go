//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/workerctl"
)

// workerPath returns the installed workerctl binary or skips the test.
func workerPath(t *testing.T) string {
	t.Helper()

	path, err := exec.LookPath("workerctl")
	if err != nil {
		t.Skip("workerctl not installed")
	}

	return path
}

// writeSource writes a log file with one marker line per document.
func writeSource(t *testing.T, docs ...string) string {
	t.Helper()

	var b strings.Builder

	b.WriteString("service starting\n")

	for _, doc := range docs {
		b.WriteString("Bulk endpoint response " + doc + "\n")
	}

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	return path
}

// baseOptions runs the installed worker against source.
func baseOptions(t *testing.T, source string) []workerctl.Option {
	t.Helper()

	return []workerctl.Option{
		workerctl.WithWorkerPath(workerPath(t)),
		workerctl.WithScanSources(source),
		workerctl.WithLogger(workerctl.NewLogger(workerctl.LevelVerbose, false)),
	}
}
