package scheduler

import (
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/engine/task"
)

// plan is the task DAG mirrored from the dependency graph.
type plan struct {
	// tasks are in depth-first post-order: predecessors first.
	tasks  []*task.Task
	byName map[domain.Name]*task.Task
}

// plan walks the graph from roots and creates one task per reachable dependency.
// Predecessors follow edge order; every edge kind except EXCLUDED orders the build.
func (s *Scheduler) plan(u *domain.Universe, roots []domain.Dependency, opts *domain.RunOptions) (*plan, error) {
	if err := u.CheckCycles(roots, domain.BuildIgnoredEdges); err != nil {
		return nil, err
	}

	p := &plan{byName: make(map[domain.Name]*task.Task)}
	adjacency := make(map[domain.Name][]domain.Name)

	err := u.Walk(roots, domain.WalkOptions{
		Ignored: domain.BuildIgnoredEdges,
		Visit: func(d domain.Dependency, _ *domain.DepEdge) error {
			if _, ok := p.byName[d.Name()]; ok {
				return nil
			}
			t, err := task.New(d, opts, s.store, s.logger)
			if err != nil {
				return err
			}
			p.byName[d.Name()] = t
			p.tasks = append(p.tasks, t)
			return nil
		},
		VisitEdge: func(dst domain.Dependency, edge *domain.DepEdge) error {
			if domain.BuildIgnoredEdges.Has(edge.Kind) {
				return nil
			}
			src := edge.Src.Name()
			adjacency[src] = append(adjacency[src], dst.Name())
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	for _, t := range p.tasks {
		for _, dst := range adjacency[t.Name()] {
			t.AddPredecessor(p.byName[dst])
		}
	}
	return p, nil
}
