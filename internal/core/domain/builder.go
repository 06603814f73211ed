package domain

import (
	"context"
	"io"
	"time"
)

// Builder is the kind-specific behaviour behind a build task.
type Builder interface {
	// BuildForbidden reports a policy decision not to build, for example a disabled kind.
	BuildForbidden() bool

	// NeedsBuild decides staleness against the newest predecessor output.
	// newestInput is absent when no predecessor produced anything. A missing output
	// is reported as (true, reason, nil), never as an error.
	NeedsBuild(newestInput TimeStamp) (bool, string, error)

	// NewestOutput returns the freshest output produced by the task; absent if none.
	NewestOutput() TimeStamp

	Build(ctx context.Context, out Output) error

	// Clean removes outputs. forBuild is true when the clean directly precedes a build.
	Clean(ctx context.Context, forBuild bool) error
}

// Preparer is implemented by builders that need set-up in the orchestrator process
// before the task may be executed elsewhere.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// ParallelBuilder is implemented by builders that drive a multi-job sub-build.
type ParallelBuilder interface {
	Parallelism() int
}

type widthKey struct{}

// ContextWithWidth returns a copy of ctx granting the running task width CPUs.
func ContextWithWidth(ctx context.Context, width int) context.Context {
	return context.WithValue(ctx, widthKey{}, width)
}

// WidthFromContext returns the CPUs granted to the running task, or fallback when
// the scheduler granted none.
func WidthFromContext(ctx context.Context, fallback int) int {
	if w, ok := ctx.Value(widthKey{}).(int); ok && w > 0 {
		return w
	}
	return fallback
}

// NativeBuilder is implemented by builders that track fine-grained staleness themselves.
// Native builders always receive newestInput, even in shallow mode.
type NativeBuilder interface {
	IsNative() bool
}

// Output is where a build writes its process output.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Outcome is the terminal state of a task execution.
type Outcome uint8

const (
	// OutcomePending means the task has not run.
	OutcomePending Outcome = iota
	// OutcomeForbidden means policy declined the build.
	OutcomeForbidden
	// OutcomeSkipped means the task was up to date.
	OutcomeSkipped
	// OutcomeBuilt means the task did work.
	OutcomeBuilt
	// OutcomeFailed means the build or clean failed.
	OutcomeFailed
	// OutcomeSatisfied means the task was outside the requested subset and counted as done.
	OutcomeSatisfied
)

var outcomeNames = [...]string{
	OutcomePending:   "pending",
	OutcomeForbidden: "forbidden",
	OutcomeSkipped:   "skipped",
	OutcomeBuilt:     "built",
	OutcomeFailed:    "failed",
	OutcomeSatisfied: "satisfied",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Done reports whether the outcome lets dependents proceed.
func (o Outcome) Done() bool {
	switch o {
	case OutcomeForbidden, OutcomeSkipped, OutcomeBuilt, OutcomeSatisfied:
		return true
	default:
		return false
	}
}

// Handoff is what a finished task reports back to the orchestrator.
// It is the only state that crosses from a worker to pending tasks.
type Handoff struct {
	Outcome          Outcome   `json:"outcome"`
	Built            bool      `json:"built"`
	Reason           string    `json:"reason,omitempty"`
	NewestOutput     string    `json:"newestOutput,omitempty"`
	NewestOutputTime time.Time `json:"newestOutputTime,omitzero"`
}

// NewestOutputStamp restores the freshest output snapshot carried by h.
func (h Handoff) NewestOutputStamp() TimeStamp {
	return Restore(h.NewestOutput, h.NewestOutputTime)
}

// PredecessorState is a finished predecessor as seen by a worker.
type PredecessorState struct {
	Name    string  `json:"name"`
	Handoff Handoff `json:"handoff"`
}

// Job describes one task execution handed to a launcher.
type Job struct {
	Manifest     string             `json:"manifest"`
	Dependency   string             `json:"dependency"`
	Parallelism  int                `json:"parallelism"`
	Options      RunOptions         `json:"options"`
	Predecessors []PredecessorState `json:"predecessors,omitempty"`
}
