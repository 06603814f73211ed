package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workerEnv makes a re-executed test binary behave like the mill binary.
const workerEnv = "MILL_MAIN_TEST_WORKER"

func TestMain(m *testing.M) {
	if os.Getenv(workerEnv) == "1" && len(os.Args) > 1 && os.Args[1] == "worker" {
		os.Exit(run(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func writeSuite(t *testing.T) (manifest, out string) {
	t.Helper()
	dir := t.TempDir()
	manifest = filepath.Join(dir, "mill.yaml")
	content := `suite: demo
settings:
  outputRoot: out
dependencies:
  first:
    outputs: ["first.txt"]
    cmd: ["sh", "-c", "echo first > \"$MILL_OUTPUT_DIR/first.txt\""]
  second:
    outputs: ["second.txt"]
    cmd: ["sh", "-c", "echo second > \"$MILL_OUTPUT_DIR/second.txt\""]
  all:
    deps: ["first", "second"]
    outputs: ["all.txt"]
    cmd: ["sh", "-c", "echo all > \"$MILL_OUTPUT_DIR/all.txt\""]
`
	if err := os.WriteFile(manifest, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return manifest, filepath.Join(dir, "out", "demo")
}

func TestRun(t *testing.T) {
	manifest, out := writeSuite(t)

	tests := []struct {
		name         string
		args         []string
		expectedExit int
	}{
		{
			name:         "Version",
			args:         []string{"version"},
			expectedExit: 0,
		},
		{
			name:         "Build with valid suite",
			args:         []string{"build", "--suite", manifest, "all"},
			expectedExit: 0,
		},
		{
			name:         "Unknown target",
			args:         []string{"build", "--suite", manifest, "missing"},
			expectedExit: 1,
		},
		{
			name:         "Missing suite",
			args:         []string{"build", "--suite", filepath.Join(t.TempDir(), "mill.yaml")},
			expectedExit: 1,
		},
		{
			name:         "Unknown command",
			args:         []string{"frobnicate"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedExit, run(tt.args))
		})
	}

	assert.FileExists(t, filepath.Join(out, "all", "all.txt"))
}

func TestRun_Isolated(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process isolation needs a unix-like host")
	}
	t.Setenv(workerEnv, "1")

	manifest, out := writeSuite(t)
	require.Equal(t, 0, run([]string{"build", "--suite", manifest, "--isolate", "-j", "2"}))

	for _, name := range []string{"first", "second", "all"} {
		content, err := os.ReadFile(filepath.Join(out, name, name+".txt"))
		require.NoError(t, err)
		assert.Equal(t, name+"\n", string(content))
	}

	saved, err := os.ReadFile(filepath.Join(out, "savedDeps", "all"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(saved), "workers persist the predecessor list")
}
