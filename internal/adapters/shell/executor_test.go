package shell_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mill/internal/adapters/shell"
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func TestExecutor_Execute_MultiLineOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)

	// One prefixed log line per output line, in order
	gomock.InOrder(
		mockLogger.EXPECT().Info("[test-task] line1").Times(1),
		mockLogger.EXPECT().Info("[test-task] line2").Times(1),
	)

	executor := shell.NewExecutor(mockLogger)

	var stdout bytes.Buffer
	cmd := domain.Command{
		Label: "test-task",
		Args:  []string{"sh", "-c", "echo line1; echo line2"},
		Dir:   t.TempDir(),
	}

	err := executor.Execute(context.Background(), cmd, domain.Output{Stdout: &stdout})
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", stdout.String(), "task output is not prefixed")
}

func TestExecutor_Execute_FragmentedOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)

	// Expect concatenated "part1part2"
	mockLogger.EXPECT().Info("[test-fragmented] part1part2").Times(1)

	executor := shell.NewExecutor(mockLogger)

	// Simulate fragmented write: "part1" then short sleep then "part2", then newline
	// This ensures we test that the writer buffers until newline
	cmd := domain.Command{
		Label: "test-fragmented",
		Args:  []string{"sh", "-c", "printf part1; sleep 0.1; echo part2"},
		Dir:   t.TempDir(),
	}

	err := executor.Execute(context.Background(), cmd, domain.Output{})
	require.NoError(t, err)
}

func TestExecutor_Execute_UnterminatedLine(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("[tail] no newline").Times(1)

	executor := shell.NewExecutor(mockLogger)

	var stdout bytes.Buffer
	cmd := domain.Command{Label: "tail", Args: []string{"sh", "-c", "printf 'no newline'"}}
	err := executor.Execute(context.Background(), cmd, domain.Output{Stdout: &stdout})
	require.NoError(t, err)
	assert.Equal(t, "no newline\n", stdout.String())
}

func TestExecutor_Execute_Stderr(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("[streams] to stdout").Times(1)
	mockLogger.EXPECT().Warn("[streams] to stderr").Times(1)

	executor := shell.NewExecutor(mockLogger)

	var stdout, stderr bytes.Buffer
	cmd := domain.Command{
		Label: "streams",
		Args:  []string{"sh", "-c", "echo to stdout; echo to stderr >&2"},
	}

	err := executor.Execute(context.Background(), cmd, domain.Output{Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)
	assert.Equal(t, "to stdout\n", stdout.String())
	assert.Equal(t, "to stderr\n", stderr.String())
}

func TestExecutor_Execute_EnvironmentVariables(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)

	// Expect the environment variable value to be logged
	mockLogger.EXPECT().Info("[test-env-task] test-value-123").Times(1)

	executor := shell.NewExecutor(mockLogger)

	cmd := domain.Command{
		Label: "test-env-task",
		Args:  []string{"sh", "-c", "echo $MY_TEST_VAR"},
		Env: map[string]string{
			"MY_TEST_VAR": "test-value-123",
		},
		Dir: t.TempDir(),
	}

	err := executor.Execute(context.Background(), cmd, domain.Output{})
	require.NoError(t, err)
}

func TestExecutor_Execute_WorkingDir(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()

	executor := shell.NewExecutor(mockLogger)
	cmd := domain.Command{Label: "touch", Args: []string{"sh", "-c", "touch made-here"}, Dir: dir}

	require.NoError(t, executor.Execute(context.Background(), cmd, domain.Output{}))
	_, err := os.Stat(filepath.Join(dir, "made-here"))
	require.NoError(t, err)
}

func TestExecutor_Execute_InvalidCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	executor := shell.NewExecutor(mockLogger)

	cmd := domain.Command{
		Label: "test-invalid",
		Args:  []string{"nonexistent-command-xyz123"},
		Dir:   t.TempDir(),
	}

	err := executor.Execute(context.Background(), cmd, domain.Output{})
	if err == nil {
		t.Error("Execute() expected error for invalid command")
	}
}

func TestExecutor_Execute_CommandFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("[test-fail] boom").Times(1)

	executor := shell.NewExecutor(mockLogger)

	cmd := domain.Command{
		Label: "test-fail",
		Args:  []string{"sh", "-c", "echo boom >&2; exit 42"},
		Dir:   t.TempDir(),
	}

	err := executor.Execute(context.Background(), cmd, domain.Output{})
	require.Error(t, err)

	// The error should wrap the exit error and include exit code
	if !strings.Contains(err.Error(), "command failed") {
		t.Errorf("Execute() error should mention command failure: %v", err)
	}

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, 42, zErr.Metadata()["exit_code"])
	assert.Equal(t, "sh", zErr.Metadata()["command"])
}

func TestExecutor_Execute_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	executor := shell.NewExecutor(mockLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := executor.Execute(ctx, domain.Command{Args: []string{"sleep", "10"}}, domain.Output{})
	require.Error(t, err)
}

// runUntilReady starts script and cancels it once it printed "ready".
func runUntilReady(t *testing.T, executor *shell.Executor, logger *mocks.MockLogger, script string) error {
	t.Helper()
	ready := make(chan struct{})
	logger.EXPECT().Info("[trap] ready").Do(func(string) { close(ready) })
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- executor.Execute(ctx, domain.Command{Label: "trap", Args: []string{"sh", "-c", script}},
			domain.Output{Stdout: io.Discard, Stderr: io.Discard})
	}()

	select {
	case <-ready:
	case <-time.After(10 * time.Second):
		t.Fatal("command did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("command was not stopped")
		return nil
	}
}

func TestExecutor_Execute_CanceledInterruptsFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)

	marker := filepath.Join(t.TempDir(), "trapped")
	script := fmt.Sprintf(`trap 'touch %q; exit 130' INT TERM; echo ready; while :; do sleep 0.05; done`, marker)

	err := runUntilReady(t, shell.NewExecutor(mockLogger), mockLogger, script)
	require.Error(t, err)
	assert.FileExists(t, marker, "the command handles the interrupt before it could be killed")
}

func TestExecutor_Execute_CanceledKillsAfterGrace(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	executor := shell.NewExecutor(mockLogger).WithGracePeriod(200 * time.Millisecond)

	start := time.Now()
	err := runUntilReady(t, executor, mockLogger, `trap '' INT; echo ready; while :; do sleep 0.05; done`)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "a command ignoring the interrupt is killed")
}

func TestExecutor_Execute_EmptyCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	executor := shell.NewExecutor(mockLogger)

	// Empty command should return nil without error
	err := executor.Execute(context.Background(), domain.Command{Label: "test-empty"}, domain.Output{})
	if err != nil {
		t.Errorf("Execute() unexpected error for empty command: %v", err)
	}
}

func TestExecutor_Execute_AbsolutePath(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("[/bin/sh] test").Times(1)

	executor := shell.NewExecutor(mockLogger)

	// Without a label the command name is the prefix
	cmd := domain.Command{Args: []string{"/bin/sh", "-c", "echo test"}, Dir: t.TempDir()}
	err := executor.Execute(context.Background(), cmd, domain.Output{})
	require.NoError(t, err)
}

func TestExecutor_Execute_PathOverride(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("[tool] success").Times(1)

	executor := shell.NewExecutor(mockLogger)

	// Create a temp directory holding the only tool on PATH
	toolDir := t.TempDir()
	cmdName := "my-build-tool"
	//nolint:gosec // Test requires executable file
	err := os.WriteFile(filepath.Join(toolDir, cmdName), []byte("#!/bin/sh\necho success\n"), 0o700)
	require.NoError(t, err)

	cmd := domain.Command{
		Label: "tool",
		Args:  []string{cmdName},
		Env:   map[string]string{"PATH": toolDir},
		Dir:   toolDir,
	}

	err = executor.Execute(context.Background(), cmd, domain.Output{})
	require.NoError(t, err)
}
