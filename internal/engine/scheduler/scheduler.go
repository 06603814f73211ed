// Package scheduler turns a dependency graph into build tasks and runs them under a CPU budget.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/mill/internal/engine/task"
	"go.trai.ch/zerr"
)

// Launchers are the two ways the scheduler can start a task.
type Launchers struct {
	// Local runs tasks as goroutines of the orchestrator.
	Local ports.Launcher
	// Isolated runs each task in its own OS process.
	Isolated ports.Launcher
}

// Scheduler builds and runs the task graph of a set of roots.
type Scheduler struct {
	launchers Launchers
	telemetry ports.Telemetry
	store     ports.SavedDepsStore
	logger    ports.Logger
	cpus      int
}

// NewScheduler creates a new Scheduler for a host with runtime.NumCPU logical CPUs.
func NewScheduler(
	launchers Launchers,
	telemetry ports.Telemetry,
	store ports.SavedDepsStore,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		launchers: launchers,
		telemetry: telemetry,
		store:     store,
		logger:    logger,
		cpus:      runtime.NumCPU(),
	}
}

// WithCPUCount overrides the host CPU count the budget is derived from.
func (s *Scheduler) WithCPUCount(n int) *Scheduler {
	s.cpus = n
	return s
}

// Run builds every task reachable from roots exactly once, in dependency order.
//
// Tasks outside opts.Only are planned but treated as already satisfied. Any task
// failure aborts the run: nothing new is launched, running tasks are joined, and
// the returned error lists every failed task.
func (s *Scheduler) Run(ctx context.Context, u *domain.Universe, roots []domain.Dependency, opts domain.RunOptions) (*Report, error) {
	if len(roots) == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}

	p, err := s.plan(u, roots, &opts)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r := &run{
		s:        s,
		plan:     p,
		opts:     &opts,
		manifest: u.Manifest(),
		budget:   opts.Budget(s.cpus),
		report:   &Report{Tasks: p.tasks},
	}

	pending := r.markSatisfied()
	r.pending = len(pending)
	launcher, serial := s.pickMode(&opts, len(pending))
	if serial {
		s.logger.Debug(fmt.Sprintf("running %d tasks serially", len(pending)))
		r.serial(ctx, pending)
	} else {
		s.logger.Debug(fmt.Sprintf("running %d tasks with a budget of %d CPUs", len(pending), r.budget))
		r.parallel(ctx, launcher, pending)
	}

	return r.report, r.err(ctx)
}

// pickMode selects the launcher, or serial execution when parallelism cannot help or is unavailable.
func (s *Scheduler) pickMode(opts *domain.RunOptions, pending int) (ports.Launcher, bool) {
	if opts.Serial || pending <= 1 {
		return nil, true
	}
	launcher := s.launchers.Local
	if opts.Isolate {
		launcher = s.launchers.Isolated
	}
	if launcher == nil || !launcher.Available() {
		if opts.Isolate {
			s.logger.Warn(domain.ErrIsolationUnavailable.Error() + ", building serially")
		}
		return nil, true
	}
	return launcher, false
}

type run struct {
	s        *Scheduler
	plan     *plan
	opts     *domain.RunOptions
	manifest string
	budget   int
	pending  int
	report   *Report
}

// markSatisfied settles every task outside the requested subset and returns the rest in plan order.
func (r *run) markSatisfied() []*task.Task {
	only := r.opts.OnlySet()
	pending := make([]*task.Task, 0, len(r.plan.tasks))
	for _, t := range r.plan.tasks {
		if only != nil {
			if _, ok := only[t.Name()]; !ok {
				t.Apply(domain.Handoff{Outcome: domain.OutcomeSatisfied})
				continue
			}
		}
		pending = append(pending, t)
	}
	return pending
}

func (r *run) serial(ctx context.Context, pending []*task.Task) {
	for _, t := range pending {
		if ctx.Err() != nil {
			return
		}
		vctx, v := r.s.telemetry.Record(ctx, t.String())
		vctx = domain.ContextWithWidth(vctx, min(t.Parallelism(), r.budget))
		out := domain.Output{Stdout: v.Stdout(), Stderr: v.Stderr()}

		h, err := r.execute(vctx, t, out)
		r.complete(t, v, h, err)
		if err != nil {
			return
		}
	}
}

func (r *run) execute(ctx context.Context, t *task.Task, out domain.Output) (domain.Handoff, error) {
	if err := t.Prepare(ctx); err != nil {
		return domain.Handoff{Outcome: domain.OutcomeFailed}, err
	}
	return t.Execute(ctx, out)
}

// complete applies a finished execution to its task. It must run on the orchestrator goroutine.
func (r *run) complete(t *task.Task, v ports.Vertex, h domain.Handoff, err error) {
	if err != nil {
		h = domain.Handoff{Outcome: domain.OutcomeFailed}
	}
	t.Apply(h)
	r.report.Executed = append(r.report.Executed, t)

	switch {
	case err != nil:
		r.report.Failed = append(r.report.Failed, Failure{Task: t, Err: err})
		r.s.logger.Error(err)
		v.Complete(err)
	case h.Outcome.Cached():
		v.Log(domain.LogLevelDebug, h.Reason)
		v.Cached()
	default:
		if h.Reason != "" {
			v.Log(domain.LogLevelInfo, h.Reason)
		}
		v.Complete(nil)
	}
}

func (r *run) err(ctx context.Context) error {
	var errs []error
	if len(r.report.Failed) > 0 {
		errs = append(errs, domain.ErrBuildFailed)
		for _, f := range r.report.Failed {
			errs = append(errs, zerr.Wrap(f.Err, f.Task.String()))
		}
	}
	if ctx.Err() != nil && len(r.report.Executed) < r.pending {
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
