// Package app implements the application layer for mill.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vito/progrock"
	"go.trai.ch/mill/internal/adapters/launcher/proc" //nolint:depguard // The worker protocol lives with its launcher
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/mill/internal/engine/scheduler"
	"go.trai.ch/mill/internal/engine/task"
	"go.trai.ch/mill/internal/tui"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	loader    ports.SuiteLoader
	scheduler *scheduler.Scheduler
	store     ports.SavedDepsStore
	telemetry ports.Telemetry
	logger    ports.Logger

	teaOptions []tea.ProgramOption
}

// progressSource is implemented by telemetry that can stream its status updates.
type progressSource interface {
	Subscribe(w progrock.Writer) (unsubscribe func())
}

// New creates a new App instance.
func New(
	loader ports.SuiteLoader,
	sched *scheduler.Scheduler,
	store ports.SavedDepsStore,
	telemetry ports.Telemetry,
	log ports.Logger,
) *App {
	return &App{
		loader:    loader,
		scheduler: sched,
		store:     store,
		telemetry: telemetry,
		logger:    log,
	}
}

// WithTeaOptions adds bubbletea program options for the progress display.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// Build loads the suite at manifest and builds targets, or every dependency when
// targets is empty. Suite settings fill the options left unset.
func (a *App) Build(ctx context.Context, manifest string, targets []string, opts domain.RunOptions) (*scheduler.Report, error) {
	u, err := a.load(manifest)
	if err != nil {
		return nil, err
	}
	if opts.OutputRoot != "" && !filepath.IsAbs(opts.OutputRoot) {
		root, err := filepath.Abs(opts.OutputRoot)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to resolve output root"), "path", opts.OutputRoot)
		}
		opts.OutputRoot = root
	}
	u.Settings.Apply(&opts)

	roots, err := a.roots(u, targets)
	if err != nil {
		return nil, err
	}
	if _, err := u.Lookup(opts.Only...); err != nil {
		return nil, zerr.Wrap(err, "invalid --only selection")
	}

	report, err := a.run(ctx, u, roots, opts)
	if err != nil {
		return report, err
	}

	built := report.Built()
	switch len(built) {
	case 0:
		a.logger.Info(fmt.Sprintf("%d tasks up to date", len(report.Tasks)))
	default:
		a.logger.Info(fmt.Sprintf("built %d of %d tasks: %s", len(built), len(report.Tasks), strings.Join(built, ", ")))
	}
	return report, nil
}

// run schedules the build, drawing the progress display next to it when asked.
func (a *App) run(ctx context.Context, u *domain.Universe, roots []domain.Dependency, opts domain.RunOptions) (*scheduler.Report, error) {
	if !opts.Progress {
		return a.scheduler.Run(ctx, u, roots, opts)
	}
	src, ok := a.telemetry.(progressSource)
	if !ok {
		a.logger.Warn("progress display is not supported by the telemetry adapter")
		return a.scheduler.Run(ctx, u, roots, opts)
	}

	stream := tui.NewStream()
	unsubscribe := src.Subscribe(stream)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	teaOpts := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
	program := tea.NewProgram(tui.NewModel(stream), teaOpts...)

	var (
		g    errgroup.Group
		done atomic.Bool
	)
	g.Go(func() error {
		_, err := program.Run()
		switch {
		case err != nil && ctx.Err() == nil:
			unsubscribe()
			return err
		case err == nil && !done.Load():
			// The display was closed while tasks were still running.
			cancel()
		}
		return nil
	})

	report, err := a.scheduler.Run(ctx, u, roots, opts)
	done.Store(true)
	_ = stream.Close()

	if perr := g.Wait(); perr != nil {
		a.logger.Warn(fmt.Sprintf("progress display failed: %v", perr))
	}
	return report, err
}

// DepsOptions selects what Deps follows.
type DepsOptions struct {
	// All also follows build-order and annotation-processor edges, as the scheduler does.
	All bool
}

func (o DepsOptions) ignored() domain.EdgeKinds {
	if o.All {
		return domain.BuildIgnoredEdges
	}
	return domain.DefaultIgnoredEdges
}

// Deps returns the transitive closure of targets, every dependency after its own dependencies.
func (a *App) Deps(manifest string, targets []string, opts DepsOptions) ([]domain.Dependency, error) {
	u, err := a.load(manifest)
	if err != nil {
		return nil, err
	}
	roots, err := a.roots(u, targets)
	if err != nil {
		return nil, err
	}
	return u.Closure(roots, opts.ignored())
}

// Path returns how from reaches to.
func (a *App) Path(manifest, from, to string, opts DepsOptions) ([]domain.Dependency, error) {
	u, err := a.load(manifest)
	if err != nil {
		return nil, err
	}
	deps, err := u.Lookup(from, to)
	if err != nil {
		return nil, err
	}
	path := u.FindPath(deps[0], deps[1], opts.ignored())
	if path == nil {
		return nil, zerr.With(zerr.With(domain.ErrNoPath, "from", from), "to", to)
	}
	return path, nil
}

// Worker runs one job read from in and writes the reply to reply. It is the
// body of the hidden worker command that the process launcher starts.
func (a *App) Worker(ctx context.Context, in io.Reader, reply io.Writer, out domain.Output) error {
	return proc.Serve(ctx, in, reply, func(ctx context.Context, job domain.Job) (domain.Handoff, error) {
		return a.runJob(ctx, job, out)
	})
}

// runJob rebuilds the task of job against the suite it came from. Predecessors
// are restored from the states the orchestrator handed over.
func (a *App) runJob(ctx context.Context, job domain.Job, out domain.Output) (domain.Handoff, error) {
	u, err := a.load(job.Manifest)
	if err != nil {
		return domain.Handoff{}, err
	}

	subject, err := u.Lookup(job.Dependency)
	if err != nil {
		return domain.Handoff{}, err
	}

	opts := job.Options
	t, err := task.New(subject[0], &opts, a.store, a.logger)
	if err != nil {
		return domain.Handoff{}, err
	}

	for _, p := range job.Predecessors {
		pred, err := u.Lookup(p.Name)
		if err != nil {
			return domain.Handoff{}, err
		}
		t.AddPredecessor(task.Restored(pred[0], p.Handoff))
	}

	if job.Parallelism > 0 {
		ctx = domain.ContextWithWidth(ctx, job.Parallelism)
	}
	return t.Execute(ctx, out)
}

// Close ends the telemetry session.
func (a *App) Close() error {
	return a.telemetry.Close()
}

func (a *App) load(manifest string) (*domain.Universe, error) {
	u, err := a.loader.Load(manifest)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load suite")
	}
	return u, nil
}

func (a *App) roots(u *domain.Universe, targets []string) ([]domain.Dependency, error) {
	if len(targets) == 0 {
		return u.All(), nil
	}
	return u.Lookup(targets...)
}
