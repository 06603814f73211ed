// Package task implements the per-dependency build task lifecycle.
package task

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
)

// Task is the per-run build state of one dependency.
//
// Execute never mutates the task. Its outcome is returned as a domain.Handoff and
// becomes visible to dependents only once the orchestrator calls Apply.
type Task struct {
	subject domain.Dependency
	builder domain.Builder
	opts    *domain.RunOptions
	store   ports.SavedDepsStore
	logger  ports.Logger

	preds    []*Task
	handoff  domain.Handoff
	prepared bool
}

// New creates the task of subject through its build-task factory.
func New(subject domain.Dependency, opts *domain.RunOptions, store ports.SavedDepsStore, logger ports.Logger) (*Task, error) {
	builder, err := subject.BuildTask(opts)
	if err != nil {
		return nil, zerr.With(err, "dependency", subject.Name().String())
	}
	return &Task{
		subject: subject,
		builder: builder,
		opts:    opts,
		store:   store,
		logger:  logger,
	}, nil
}

// Restored returns a finished stand-in for a predecessor that ran elsewhere.
// It only answers Built, Outcome and NewestOutput.
func Restored(subject domain.Dependency, h domain.Handoff) *Task {
	return &Task{subject: subject, handoff: h}
}

// Subject returns the dependency this task builds.
func (t *Task) Subject() domain.Dependency { return t.subject }

// Name returns the dependency name.
func (t *Task) Name() domain.Name { return t.subject.Name() }

func (t *Task) String() string { return t.subject.Name().String() }

// AddPredecessor appends p unless it is already a predecessor.
func (t *Task) AddPredecessor(p *Task) {
	if slices.Contains(t.preds, p) {
		return
	}
	t.preds = append(t.preds, p)
}

// Predecessors returns the predecessor tasks in edge order.
func (t *Task) Predecessors() []*Task { return t.preds }

// Parallelism is the number of CPUs the task occupies while running.
func (t *Task) Parallelism() int {
	if pb, ok := t.builder.(domain.ParallelBuilder); ok {
		return max(pb.Parallelism(), 1)
	}
	return 1
}

// Outcome returns the applied outcome.
func (t *Task) Outcome() domain.Outcome { return t.handoff.Outcome }

// Built reports whether the task did work this run.
func (t *Task) Built() bool { return t.handoff.Built }

// Handoff returns the applied handoff.
func (t *Task) Handoff() domain.Handoff { return t.handoff }

// Apply records the outcome of an execution, wherever it ran.
func (t *Task) Apply(h domain.Handoff) { t.handoff = h }

// Ready reports whether every predecessor has a terminal, successful outcome.
func (t *Task) Ready() bool {
	for _, p := range t.preds {
		if !p.Outcome().Done() {
			return false
		}
	}
	return true
}

// NewestOutput returns the freshest output of the task.
func (t *Task) NewestOutput() domain.TimeStamp {
	if t.builder == nil {
		return t.handoff.NewestOutputStamp()
	}
	return t.builder.NewestOutput()
}

// Snapshot returns the applied handoff with the freshest output filled in,
// as a worker process should see this task.
func (t *Task) Snapshot() domain.Handoff {
	h := t.handoff
	if newest := t.NewestOutput(); newest.Exists() {
		h.NewestOutput = newest.Path()
		h.NewestOutputTime = newest.ModTime()
	}
	return h
}

// Job describes this task for a launcher.
func (t *Task) Job(manifest string, parallelism int) domain.Job {
	job := domain.Job{
		Manifest:    manifest,
		Dependency:  t.subject.Name().String(),
		Parallelism: parallelism,
		Options:     *t.opts,
	}
	for _, p := range t.preds {
		job.Predecessors = append(job.Predecessors, domain.PredecessorState{
			Name:    p.subject.Name().String(),
			Handoff: p.Snapshot(),
		})
	}
	return job
}

// Prepare runs the builder's orchestrator-side set-up once.
func (t *Task) Prepare(ctx context.Context) error {
	if t.prepared {
		return nil
	}
	if p, ok := t.builder.(domain.Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			return zerr.With(err, "task", t.String())
		}
	}
	t.prepared = true
	return nil
}

// Execute decides whether the task is stale and builds it if so.
func (t *Task) Execute(ctx context.Context, out domain.Output) (domain.Handoff, error) {
	if t.builder.BuildForbidden() {
		t.logger.Debug(fmt.Sprintf("Skipping %s: build forbidden", t))
		return domain.Handoff{Outcome: domain.OutcomeForbidden, Reason: "build forbidden"}, nil
	}

	var (
		needed  bool
		reason  string
		cleaned bool
	)

	if t.opts.Clean {
		t.logger.Debug(fmt.Sprintf("Cleaning %s", t))
		if err := t.builder.Clean(ctx, false); err != nil {
			return t.fail(zerr.Wrap(err, domain.ErrCleanFailed.Error()))
		}
		needed, reason, cleaned = true, "clean", true
	}

	if !needed {
		if updated := t.updatedPredecessors(); len(updated) > 0 {
			needed, reason = true, fmt.Sprintf("%s rebuilt", strings.Join(updated, ", "))
		}
	}

	depsChanged, err := t.savedDepsChanged()
	if err != nil {
		return t.fail(err)
	}
	if !needed && depsChanged {
		needed, reason = true, "dependencies changed"
	}

	if !needed && t.opts.Force {
		needed, reason = true, "forced build"
	}

	if !needed {
		var newestInput domain.TimeStamp
		if !t.opts.Shallow || t.isNative() {
			newestInput = t.newestInput()
		}
		needed, reason, err = t.builder.NeedsBuild(newestInput)
		if err != nil {
			return t.fail(err)
		}
	}

	outcome := domain.OutcomeSkipped
	if needed {
		if !cleaned {
			if err := t.builder.Clean(ctx, true); err != nil {
				return t.fail(zerr.Wrap(err, domain.ErrCleanFailed.Error()))
			}
		}
		t.logger.Info(fmt.Sprintf("Building %s: %s", t, reason))
		if err := t.builder.Build(ctx, out); err != nil {
			return t.fail(err)
		}
		outcome = domain.OutcomeBuilt
	} else {
		t.logger.Debug(fmt.Sprintf("Skipping %s: %s", t, reason))
	}

	if err := t.persistDeps(); err != nil {
		return t.fail(err)
	}

	h := domain.Handoff{Outcome: outcome, Built: needed, Reason: reason}
	if newest := t.builder.NewestOutput(); newest.Exists() {
		h.NewestOutput = newest.Path()
		h.NewestOutputTime = newest.ModTime()
	}
	return h, nil
}

func (t *Task) fail(err error) (domain.Handoff, error) {
	return domain.Handoff{Outcome: domain.OutcomeFailed}, zerr.With(err, "task", t.String())
}

func (t *Task) isNative() bool {
	nb, ok := t.builder.(domain.NativeBuilder)
	return ok && nb.IsNative()
}

func (t *Task) updatedPredecessors() []string {
	var updated []string
	for _, p := range t.preds {
		if p.Built() {
			updated = append(updated, p.String())
		}
	}
	return updated
}

func (t *Task) newestInput() domain.TimeStamp {
	var newest domain.TimeStamp
	for _, p := range t.preds {
		newest = domain.NewestOf(newest, p.NewestOutput())
	}
	return newest
}

func (t *Task) predecessorNames() []string {
	names := make([]string, len(t.preds))
	for i, p := range t.preds {
		names[i] = p.String()
	}
	return names
}

// savedDepsChanged compares the predecessor list against the one recorded by the
// last successful run. A missing record is not a change.
func (t *Task) savedDepsChanged() (bool, error) {
	saved, ok, err := t.store.Load(t.opts.SavedDepsPath(t.subject))
	if err != nil {
		return false, err
	}
	return ok && !slices.Equal(saved, t.predecessorNames()), nil
}

func (t *Task) persistDeps() error {
	path := t.opts.SavedDepsPath(t.subject)
	if len(t.preds) == 0 {
		return t.store.Remove(path)
	}
	saved, ok, err := t.store.Load(path)
	if err != nil {
		return err
	}
	current := t.predecessorNames()
	if ok && slices.Equal(saved, current) {
		return nil
	}
	return t.store.Save(path, current)
}
