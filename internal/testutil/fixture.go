// Package testutil provides testing utilities shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// FixturePath returns the absolute path of a netlist fixture under
// testdata/fixtures/netlist/, failing the test if it does not exist.
func FixturePath(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(getFixturesRoot(t), "netlist", name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Fixture not found: %s", path)
	}
	return path
}

// OpenFixture opens a netlist fixture for reading. The file is closed when the test ends.
func OpenFixture(t *testing.T, name string) *os.File {
	t.Helper()

	f, err := os.Open(FixturePath(t, name))
	if err != nil {
		t.Fatalf("Failed to open fixture %s: %v", name, err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}

	return fixturesRoot
}

// WriteGzip writes data gzip-compressed to path.
func WriteGzip(t *testing.T, path string, data []byte) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("Failed to compress %s: %v", path, err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to finish %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close %s: %v", path, err)
	}
}
