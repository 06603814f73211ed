package domain

import "go.trai.ch/zerr"

// WalkOptions configures Universe.Walk. Every callback is optional.
type WalkOptions struct {
	// PreVisit fires when a node is first reached. Returning false prunes the node's
	// subtree for this walk; the node stays visited and Visit is not called for it.
	PreVisit func(d Dependency, edge *DepEdge) bool

	// Visit fires post-order, once all non-pruned children of d are fully processed.
	Visit func(d Dependency, edge *DepEdge) error

	// VisitEdge fires for every outgoing edge considered, including edges of ignored
	// kinds and edges to nodes that were already visited. edge.Src is the source node.
	VisitEdge func(dst Dependency, edge *DepEdge) error

	// Ignored edges are neither descended nor trigger PreVisit/Visit on their target.
	Ignored EdgeKinds
}

type walker struct {
	opts    WalkOptions
	visited map[Name]struct{}
}

// Walk performs a depth-first traversal of the spanning tree reachable from roots.
// A nil roots slice walks every registered dependency in registration order.
// Each node is processed at most once per call. The first error returned by a
// callback aborts the walk and is returned unchanged.
func (u *Universe) Walk(roots []Dependency, opts WalkOptions) error {
	if roots == nil {
		roots = u.order
	}
	w := &walker{opts: opts, visited: make(map[Name]struct{}, len(u.order))}
	for _, root := range roots {
		if w.seen(root) {
			continue
		}
		if err := w.walk(root, nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) seen(d Dependency) bool {
	_, ok := w.visited[d.Name()]
	return ok
}

func (w *walker) walk(d Dependency, via *DepEdge) error {
	if w.seen(d) {
		return zerr.With(zerr.With(ErrWalkInconsistent, "dependency", d.Name().String()), "path", via.String())
	}
	w.visited[d.Name()] = struct{}{}

	if w.opts.PreVisit != nil && !w.opts.PreVisit(d, via) {
		return nil
	}

	for _, e := range d.Edges() {
		edge := &DepEdge{Src: d, Kind: e.Kind, Prev: via}
		if w.opts.VisitEdge != nil {
			if err := w.opts.VisitEdge(e.Target, edge); err != nil {
				return err
			}
		}
		if w.opts.Ignored.Has(e.Kind) || w.seen(e.Target) {
			continue
		}
		if err := w.walk(e.Target, edge); err != nil {
			return err
		}
	}

	if w.opts.Visit != nil {
		return w.opts.Visit(d, via)
	}
	return nil
}

// CheckCycles fails with ErrCycleDetected when a directed cycle exists among the
// non-ignored edges reachable from roots. The error's "cycle" metadata is the path
// from the walk root to the repeated node, inclusive at both ends.
func (u *Universe) CheckCycles(roots []Dependency, ignored EdgeKinds) error {
	var stack []Dependency
	onStack := make(map[Name]bool)

	return u.Walk(roots, WalkOptions{
		Ignored: ignored,
		PreVisit: func(d Dependency, _ *DepEdge) bool {
			stack = append(stack, d)
			onStack[d.Name()] = true
			return true
		},
		Visit: func(d Dependency, _ *DepEdge) error {
			stack = stack[:len(stack)-1]
			delete(onStack, d.Name())
			return nil
		},
		VisitEdge: func(dst Dependency, edge *DepEdge) error {
			if ignored.Has(edge.Kind) || !onStack[dst.Name()] {
				return nil
			}
			path := append(append([]Dependency(nil), stack...), dst)
			return zerr.With(ErrCycleDetected, "cycle", FormatPath(path))
		},
	})
}

// Closure returns every dependency reachable from roots through non-ignored edges,
// in post-order: a dependency always appears after everything it depends on.
func (u *Universe) Closure(roots []Dependency, ignored EdgeKinds) ([]Dependency, error) {
	var out []Dependency
	err := u.Walk(roots, WalkOptions{
		Ignored: ignored,
		Visit: func(d Dependency, _ *DepEdge) error {
			out = append(out, d)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindPath returns a path from "from" to "to" following non-ignored edges,
// or nil when "to" is unreachable. The search stops descending as soon as a path is found.
func (u *Universe) FindPath(from, to Dependency, ignored EdgeKinds) []Dependency {
	var found []Dependency
	_ = u.Walk([]Dependency{from}, WalkOptions{
		Ignored: ignored,
		PreVisit: func(d Dependency, edge *DepEdge) bool {
			if found != nil {
				return false
			}
			if d.Name() == to.Name() {
				found = append(edge.Path(), d)
				return false
			}
			return true
		},
	})
	return found
}
