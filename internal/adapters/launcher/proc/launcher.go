// Package proc runs each task in a child process of the current binary.
//
// The parent writes the JSON-encoded domain.Job to the child's stdin. The child
// answers with a JSON reply on file descriptor 3, keeping stdout and stderr free
// for build output.
package proc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
)

// WorkerCommand is the subcommand a child is started with.
const WorkerCommand = "worker"

// DefaultGracePeriod is how long a child may take to exit after it was interrupted.
const DefaultGracePeriod = 5 * time.Second

// Launcher implements ports.Launcher by re-executing a binary as a worker.
type Launcher struct {
	executable string
	args       []string
	env        []string
	stderr     io.Writer
	grace      time.Duration
}

// New creates a Launcher that re-executes the running binary.
// It is unavailable when the binary path cannot be determined.
func New() *Launcher {
	exe, err := os.Executable()
	if err != nil {
		exe = ""
	}
	return NewWithExecutable(exe, WorkerCommand)
}

// NewWithExecutable creates a Launcher that starts executable with args.
func NewWithExecutable(executable string, args ...string) *Launcher {
	return &Launcher{
		executable: executable,
		args:       args,
		stderr:     os.Stderr,
		grace:      DefaultGracePeriod,
	}
}

// WithEnv adds environment entries to every child.
func (l *Launcher) WithEnv(env ...string) *Launcher {
	l.env = append(l.env, env...)
	return l
}

// WithStderr sets where child diagnostics are copied, besides the task output.
func (l *Launcher) WithStderr(w io.Writer) *Launcher {
	l.stderr = w
	return l
}

// WithGracePeriod sets how long an interrupted child may take to exit before it is killed.
func (l *Launcher) WithGracePeriod(d time.Duration) *Launcher {
	l.grace = d
	return l
}

var _ ports.Launcher = (*Launcher)(nil)

// Available reports whether children can be started. Passing the reply descriptor
// requires a unix-like host.
func (l *Launcher) Available() bool {
	return supported && l.executable != ""
}

// Launch starts a child for job, waits for it, and returns the handoff it reported.
// run is ignored; the child executes the task itself.
func (l *Launcher) Launch(ctx context.Context, job domain.Job, out domain.Output, _ ports.RunFunc) (domain.Handoff, error) {
	failed := domain.Handoff{Outcome: domain.OutcomeFailed}
	if !l.Available() {
		return failed, domain.ErrIsolationUnavailable
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return failed, zerr.Wrap(err, "failed to encode worker job")
	}

	replyR, replyW, err := os.Pipe()
	if err != nil {
		return failed, zerr.Wrap(err, "failed to create worker reply pipe")
	}
	defer func() { _ = replyR.Close() }()

	cmd := exec.CommandContext(ctx, l.executable, l.args...) //nolint:gosec // re-executes our own binary
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = writerOr(out.Stdout)
	cmd.Stderr = io.MultiWriter(writerOr(out.Stderr), writerOr(l.stderr))
	cmd.ExtraFiles = []*os.File{replyW}
	cmd.Env = append(os.Environ(), l.env...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = l.grace

	if err := cmd.Start(); err != nil {
		_ = replyW.Close()
		return failed, zerr.With(zerr.Wrap(err, "failed to start worker"), "dependency", job.Dependency)
	}
	// The child holds its own copy; closing ours lets the read below see EOF.
	_ = replyW.Close()

	raw, readErr := io.ReadAll(replyR)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return failed, zerr.With(zerr.Wrap(ctx.Err(), "worker interrupted"), "dependency", job.Dependency)
	}

	var r reply
	if readErr == nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &r); err != nil {
			readErr = err
		}
	}

	switch {
	case r.Error != "":
		return failed, zerr.With(workerError(r.Error, waitErr), "dependency", job.Dependency)
	case waitErr != nil:
		return failed, zerr.With(workerError(domain.ErrTaskFailed.Error(), waitErr), "dependency", job.Dependency)
	case readErr != nil:
		return failed, zerr.With(zerr.Wrap(readErr, domain.ErrWorkerProtocol.Error()), "dependency", job.Dependency)
	case r.Handoff == nil:
		return failed, zerr.With(domain.ErrWorkerProtocol, "dependency", job.Dependency)
	}
	return *r.Handoff, nil
}

// workerError rebuilds a child's error message and attaches its exit code.
func workerError(msg string, waitErr error) error {
	err := zerr.New(msg)
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		err = zerr.With(err, "exit_code", exitErr.ExitCode())
	}
	return err
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
