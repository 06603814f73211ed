package scheduler

import (
	"context"
	"slices"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/mill/internal/engine/task"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type completion struct {
	task    *task.Task
	vertex  ports.Vertex
	weight  int64
	handoff domain.Handoff
	err     error
}

// parallel runs pending tasks through launcher. Only this goroutine touches task state;
// workers hand their outcome back over the completion channel.
func (r *run) parallel(ctx context.Context, launcher ports.Launcher, pending []*task.Task) {
	var (
		g       errgroup.Group
		sem     = semaphore.NewWeighted(int64(r.budget))
		done    = make(chan completion, len(pending))
		running int
		stop    = ctx.Done()
	)
	worklist := slices.Clone(pending)

	for len(worklist) > 0 || running > 0 {
		if len(r.report.Failed) == 0 && ctx.Err() == nil {
			worklist = r.launchReady(ctx, launcher, worklist, sem, &g, done, &running)
		}
		if running == 0 {
			break
		}

		select {
		case c := <-done:
			running--
			sem.Release(c.weight)
			r.complete(c.task, c.vertex, c.handoff, c.err)
		case <-stop:
			// Workers observe the same context. Keep joining them without spinning.
			stop = nil
		}
	}

	_ = g.Wait()
}

// launchReady starts every candidate whose predecessors are joined and whose weight fits
// the remaining budget, lowest remaining depth first. It returns the tasks left waiting.
func (r *run) launchReady(
	ctx context.Context,
	launcher ports.Launcher,
	worklist []*task.Task,
	sem *semaphore.Weighted,
	g *errgroup.Group,
	done chan<- completion,
	running *int,
) []*task.Task {
	depths := remainingDepths(worklist)
	slices.SortStableFunc(worklist, func(a, b *task.Task) int {
		return depths[a] - depths[b]
	})

	waiting := worklist[:0]
	for i, t := range worklist {
		if !t.Ready() {
			waiting = append(waiting, t)
			continue
		}
		weight := int64(min(t.Parallelism(), r.budget))
		if !sem.TryAcquire(weight) {
			waiting = append(waiting, t)
			continue
		}

		vctx, v := r.s.telemetry.Record(ctx, t.String())
		vctx = domain.ContextWithWidth(vctx, int(weight))
		out := domain.Output{Stdout: v.Stdout(), Stderr: v.Stderr()}

		if err := t.Prepare(vctx); err != nil {
			sem.Release(weight)
			r.complete(t, v, domain.Handoff{}, err)
			return append(waiting, worklist[i+1:]...)
		}

		job := t.Job(r.manifest, int(weight))
		*running++
		g.Go(func() error {
			h, err := launcher.Launch(vctx, job, out, func(ctx context.Context) (domain.Handoff, error) {
				return t.Execute(ctx, out)
			})
			done <- completion{task: t, vertex: v, weight: weight, handoff: h, err: err}
			return nil
		})
	}
	return waiting
}

// remainingDepths is 0 for a task whose predecessors are all finished or outside the run,
// and otherwise one more than the deepest unfinished predecessor.
func remainingDepths(worklist []*task.Task) map[*task.Task]int {
	depths := make(map[*task.Task]int, len(worklist))
	var depth func(t *task.Task) int
	depth = func(t *task.Task) int {
		if d, ok := depths[t]; ok {
			return d
		}
		d := 0
		for _, p := range t.Predecessors() {
			if p.Outcome().Done() {
				continue
			}
			d = max(d, 1+depth(p))
		}
		depths[t] = d
		return d
	}
	for _, t := range worklist {
		depth(t)
	}
	return depths
}
