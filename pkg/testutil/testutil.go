// Package testutil provides shared helpers for cohort tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cohortdata/cohort/pkg/compression"
)

// Logger creates a test logger that writes to the test output and is
// cleaned up when the test completes.
func Logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// WriteFile writes content to a file under the test's temp directory and
// returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// WriteGzip writes gzip-compressed content to a file under the test's temp
// directory and returns its path.
func WriteGzip(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture %s: %v", name, err)
	}
	defer f.Close()

	w, err := compression.NewWriter(compression.Gzip, f)
	if err != nil {
		t.Fatalf("open gzip writer for %s: %v", name, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close gzip writer for %s: %v", name, err)
	}
	return path
}
