// Package shell provides the shell executor adapter.
package shell

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// DefaultGracePeriod is how long a command may take to exit after it was interrupted.
const DefaultGracePeriod = 5 * time.Second

// Executor implements ports.Executor using os/exec.
type Executor struct {
	logger ports.Logger
	grace  time.Duration
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
		grace:  DefaultGracePeriod,
	}
}

// WithGracePeriod sets how long an interrupted command may run before it is killed.
func (e *Executor) WithGracePeriod(d time.Duration) *Executor {
	e.grace = d
	return e
}

// Execute runs cmd and waits for it.
//
// The command environment is os.Environ() overridden by cmd.Env. Every complete
// output line is copied to out and logged with a "[label]" prefix, so the output
// of tasks running side by side stays attributable.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command, out domain.Output) error {
	if len(cmd.Args) == 0 {
		return nil
	}

	name := cmd.Args[0]
	args := cmd.Args[1:]

	// Construct the final environment
	cmdEnv := resolveEnvironment(os.Environ(), cmd.Env)

	// Resolve the executable path using the new environment's PATH
	// If command is not an absolute path, search in env
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user provided command

	// Restore the original command name in Args[0]
	// exec.CommandContext sets Args[0] to the executable path.
	// We want to preserve the original name as invoked.
	if len(c.Args) > 0 {
		c.Args[0] = name
	}

	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	c.Env = cmdEnv
	// On cancellation the command is interrupted first and killed after the grace period.
	c.Cancel = func() error {
		return c.Process.Signal(os.Interrupt)
	}
	c.WaitDelay = e.grace

	label := cmd.Label
	if label == "" {
		label = name
	}
	stdout := newPrefixWriter(out.Stdout, "["+label+"] ", e.logger.Info)
	stderr := newPrefixWriter(out.Stderr, "["+label+"] ", e.logger.Warn)
	c.Stdout = stdout
	c.Stderr = stderr

	err := c.Run()
	stdout.Flush()
	stderr.Flush()

	if err != nil {
		exitCode := -1 // Unknown or signal
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.With(zerr.Wrap(err, domain.ErrCommandFailed.Error()), "exit_code", exitCode), "command", name)
	}

	return nil
}

// resolveEnvironment applies overrides on top of the system environment.
// The result is sorted so that child processes see a stable order.
func resolveEnvironment(sysEnv []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			envMap[k] = v
		}
	}

	for k, v := range overrides {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	// Find PATH in env
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
