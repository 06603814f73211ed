package task_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mill/internal/adapters/store"
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports/mocks"
	"go.trai.ch/mill/internal/engine/task"
	"go.trai.ch/mill/internal/kinds"
	"go.uber.org/mock/gomock"
)

// fileBuilder builds by writing its output file. It is stale when the output is
// missing, older than the newest input, or older than its source.
type fileBuilder struct {
	source    string
	output    string
	buildErr  error
	forbidden bool

	builds int
	cleans []bool
}

func (b *fileBuilder) BuildForbidden() bool { return b.forbidden }

func (b *fileBuilder) NeedsBuild(newestInput domain.TimeStamp) (bool, string, error) {
	out := domain.NewTimeStamp(b.output)
	switch {
	case !out.Exists():
		return true, "output missing", nil
	case newestInput.Exists() && out.IsOlderThan(newestInput):
		return true, "older than " + newestInput.Path(), nil
	case b.source != "" && out.IsOlderThanAny([]string{b.source}):
		return true, "source changed", nil
	}
	return false, "up to date", nil
}

func (b *fileBuilder) NewestOutput() domain.TimeStamp { return domain.NewTimeStamp(b.output) }

func (b *fileBuilder) Build(context.Context, domain.Output) error {
	if b.buildErr != nil {
		return b.buildErr
	}
	b.builds++
	return os.WriteFile(b.output, []byte("built"), 0o600)
}

func (b *fileBuilder) Clean(_ context.Context, forBuild bool) error {
	b.cleans = append(b.cleans, forBuild)
	return nil
}

type fileDep struct {
	domain.Node
	builder *fileBuilder
}

func (d *fileDep) BuildTask(*domain.RunOptions) (domain.Builder, error) { return d.builder, nil }

type fixture struct {
	t      *testing.T
	dir    string
	opts   *domain.RunOptions
	logger *mocks.MockLogger
	deps   map[string]*fileDep
	clock  time.Time
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()

	dir := t.TempDir()
	f := &fixture{
		t:      t,
		dir:    dir,
		opts:   &domain.RunOptions{OutputRoot: filepath.Join(dir, "out")},
		logger: logger,
		deps:   make(map[string]*fileDep),
		clock:  time.Now().Add(-time.Hour),
	}
	for _, n := range names {
		f.deps[n] = &fileDep{
			Node: domain.NewNode(n, "suite", domain.KindProject),
			builder: &fileBuilder{
				source: filepath.Join(dir, n+".src"),
				output: filepath.Join(dir, n+".out"),
			},
		}
		f.write(f.deps[n].builder.source)
	}
	return f
}

// write creates path with a strictly increasing mtime, so ordering never depends on fs granularity.
func (f *fixture) write(path string) {
	f.t.Helper()
	f.clock = f.clock.Add(time.Second)
	require.NoError(f.t, os.WriteFile(path, []byte(path), 0o600))
	require.NoError(f.t, os.Chtimes(path, f.clock, f.clock))
}

// tasks creates fresh tasks for one run. preds maps a task to its predecessors in order.
func (f *fixture) tasks(preds map[string][]string) map[string]*task.Task {
	f.t.Helper()
	out := make(map[string]*task.Task, len(f.deps))
	for n, d := range f.deps {
		tk, err := task.New(d, f.opts, store.NewStore(), f.logger)
		require.NoError(f.t, err)
		out[n] = tk
	}
	for n, ps := range preds {
		for _, p := range ps {
			out[n].AddPredecessor(out[p])
		}
	}
	return out
}

// run executes tasks in order, applying each handoff, and restamps fresh outputs.
func (f *fixture) run(tasks map[string]*task.Task, order ...string) map[string]domain.Handoff {
	f.t.Helper()
	res := make(map[string]domain.Handoff, len(order))
	for _, n := range order {
		h, err := tasks[n].Execute(context.Background(), domain.Output{Stdout: io.Discard, Stderr: io.Discard})
		require.NoError(f.t, err, n)
		if h.Built {
			f.write(f.deps[n].builder.output)
		}
		tasks[n].Apply(h)
		res[n] = h
	}
	return res
}

func TestTask_ChainPropagation(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	chain := map[string][]string{"A": {"B"}, "B": {"C"}}

	first := f.run(f.tasks(chain), "C", "B", "A")
	for _, n := range []string{"A", "B", "C"} {
		assert.True(t, first[n].Built, n)
	}

	second := f.run(f.tasks(chain), "C", "B", "A")
	for _, n := range []string{"A", "B", "C"} {
		assert.False(t, second[n].Built, "idempotent rerun rebuilt %s", n)
		assert.Equal(t, domain.OutcomeSkipped, second[n].Outcome)
	}

	f.write(f.deps["C"].builder.source)
	tasks := f.tasks(chain)
	third := f.run(tasks, "C", "B", "A")
	assert.True(t, tasks["C"].Built())
	assert.True(t, tasks["B"].Built())
	assert.True(t, tasks["A"].Built())
	assert.Equal(t, "source changed", third["C"].Reason)
	assert.Equal(t, "C rebuilt", third["B"].Reason)
	assert.Equal(t, "B rebuilt", third["A"].Reason)
	assert.Equal(t, 2, f.deps["C"].builder.builds)
}

func TestTask_ReasonNamesUpdatedPredecessor(t *testing.T) {
	f := newFixture(t, "A", "B")
	tasks := f.tasks(map[string][]string{"A": {"B"}})

	tasks["B"].Apply(domain.Handoff{Outcome: domain.OutcomeBuilt, Built: true})
	h, err := tasks["A"].Execute(context.Background(), domain.Output{Stdout: io.Discard, Stderr: io.Discard})
	require.NoError(t, err)
	assert.True(t, h.Built)
	assert.Equal(t, "B rebuilt", h.Reason)
	assert.Equal(t, []bool{true}, f.deps["A"].builder.cleans, "pre-build clean")
}

func TestTask_DependencySetChange(t *testing.T) {
	f := newFixture(t, "A", "B", "C")

	f.run(f.tasks(map[string][]string{"A": {"B", "C"}}), "B", "C", "A")
	f.run(f.tasks(map[string][]string{"A": {"B", "C"}}), "B", "C", "A")
	require.Equal(t, 1, f.deps["A"].builder.builds)

	saved := f.opts.SavedDepsPath(f.deps["A"])
	content, err := os.ReadFile(saved) //nolint:gosec // Test file with controlled path
	require.NoError(t, err)
	assert.Equal(t, "B\nC\n", string(content))

	res := f.run(f.tasks(map[string][]string{"A": {"C", "B"}}), "B", "C", "A")
	assert.True(t, res["A"].Built)
	assert.Equal(t, "dependencies changed", res["A"].Reason)

	res = f.run(f.tasks(map[string][]string{"A": {"C"}}), "C", "A")
	assert.True(t, res["A"].Built, "removed predecessor")

	res = f.run(f.tasks(nil), "A")
	assert.Equal(t, "dependencies changed", res["A"].Reason, "all predecessors removed")
	_, err = os.Stat(saved)
	assert.True(t, os.IsNotExist(err), "record without predecessors is deleted")

	res = f.run(f.tasks(nil), "A")
	assert.False(t, res["A"].Built)
}

func TestTask_ForceAndClean(t *testing.T) {
	f := newFixture(t, "A")
	f.run(f.tasks(nil), "A")

	f.opts.Force = true
	res := f.run(f.tasks(nil), "A")
	assert.True(t, res["A"].Built)
	assert.Equal(t, "forced build", res["A"].Reason)

	f.opts.Force = false
	f.opts.Clean = true
	f.deps["A"].builder.cleans = nil
	res = f.run(f.tasks(nil), "A")
	assert.Equal(t, "clean", res["A"].Reason)
	assert.Equal(t, []bool{false}, f.deps["A"].builder.cleans, "explicit clean replaces the pre-build clean")
}

func TestTask_Shallow(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.run(f.tasks(map[string][]string{"A": {"B"}}), "B", "A")

	f.write(f.deps["B"].builder.output)
	f.opts.Shallow = true
	tasks := f.tasks(map[string][]string{"A": {"B"}})
	tasks["B"].Apply(domain.Handoff{Outcome: domain.OutcomeSkipped})
	h, err := tasks["A"].Execute(context.Background(), domain.Output{Stdout: io.Discard, Stderr: io.Discard})
	require.NoError(t, err)
	assert.False(t, h.Built, "shallow mode ignores predecessor timestamps")

	f.opts.Shallow = false
	h, err = tasks["A"].Execute(context.Background(), domain.Output{Stdout: io.Discard, Stderr: io.Discard})
	require.NoError(t, err)
	assert.True(t, h.Built)
}

func TestTask_ForbiddenAndFailure(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.deps["A"].builder.forbidden = true
	boom := errors.New("compiler crashed")
	f.deps["B"].builder.buildErr = boom

	tasks := f.tasks(nil)
	h, err := tasks["A"].Execute(context.Background(), domain.Output{})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeForbidden, h.Outcome)
	assert.False(t, h.Built)

	h, err = tasks["B"].Execute(context.Background(), domain.Output{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, domain.OutcomeFailed, h.Outcome)
	_, statErr := os.Stat(f.opts.SavedDepsPath(f.deps["B"]))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTask_JobAndRestored(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.run(f.tasks(nil), "B")
	tasks := f.tasks(map[string][]string{"A": {"B", "B"}})
	tasks["B"].Apply(domain.Handoff{Outcome: domain.OutcomeSatisfied})

	require.Len(t, tasks["A"].Predecessors(), 1, "duplicate predecessor ignored")
	job := tasks["A"].Job("/suite.yaml", 2)
	assert.Equal(t, "A", job.Dependency)
	assert.Equal(t, 2, job.Parallelism)
	require.Len(t, job.Predecessors, 1)
	assert.Equal(t, f.deps["B"].builder.output, job.Predecessors[0].Handoff.NewestOutput)

	restored := task.Restored(f.deps["B"], job.Predecessors[0].Handoff)
	assert.True(t, restored.NewestOutput().Exists())
	assert.Equal(t, domain.OutcomeSatisfied, restored.Outcome())
}

func TestTask_ForcedLibraryKeepsJarWhenFetchFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("network down"))

	opts := &domain.RunOptions{OutputRoot: t.TempDir(), Force: true, FetchAttempts: 1}
	lib := kinds.NewLibrary("junit", "suite", kinds.LibrarySpec{URL: "https://example.com/junit.jar"},
		&kinds.Toolbox{Fetcher: fetcher, Logger: logger})
	jar := filepath.Join(opts.OutputDir(lib), "junit.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(jar), 0o750))
	require.NoError(t, os.WriteFile(jar, []byte("previous"), 0o600))

	tk, err := task.New(lib, opts, store.NewStore(), logger)
	require.NoError(t, err)
	_, err = tk.Execute(context.Background(), domain.Output{Stdout: io.Discard, Stderr: io.Discard})
	require.ErrorIs(t, err, domain.ErrFetchFailed)

	content, err := os.ReadFile(jar)
	require.NoError(t, err, "the previous jar survives a failed download")
	assert.Equal(t, "previous", string(content))
}
