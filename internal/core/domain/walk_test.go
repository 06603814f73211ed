package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/zerr"
)

type fakeDep struct {
	domain.Node
}

func (f *fakeDep) BuildTask(*domain.RunOptions) (domain.Builder, error) { return nil, nil }

func newFake(name string) *fakeDep {
	return &fakeDep{Node: domain.NewNode(name, "test", domain.KindProject)}
}

// graph builds a universe from "src:kind:dst" style adjacency, registering nodes in order.
func graph(t *testing.T, names []string, edges [][3]string) (*domain.Universe, map[string]*fakeDep) {
	t.Helper()
	u := domain.NewUniverse("test", "/tmp/suite.yaml")
	deps := make(map[string]*fakeDep, len(names))
	for _, n := range names {
		d := newFake(n)
		deps[n] = d
		require.NoError(t, u.Add(d))
	}
	for _, e := range edges {
		kind, err := domain.ParseEdgeKind(e[1])
		require.NoError(t, err)
		deps[e[0]].Link(kind, deps[e[2]])
	}
	return u, deps
}

func names(deps []domain.Dependency) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.Name().String()
	}
	return out
}

func TestWalk_VisitsDiamondOnce(t *testing.T) {
	u, deps := graph(t, []string{"A", "B", "C", "D"}, [][3]string{
		{"A", "standard", "B"},
		{"A", "standard", "C"},
		{"B", "standard", "D"},
		{"C", "standard", "D"},
	})

	visits := map[string]int{}
	var order []string
	var edges []string
	err := u.Walk([]domain.Dependency{deps["A"]}, domain.WalkOptions{
		Visit: func(d domain.Dependency, _ *domain.DepEdge) error {
			visits[d.Name().String()]++
			order = append(order, d.Name().String())
			return nil
		},
		VisitEdge: func(dst domain.Dependency, edge *domain.DepEdge) error {
			edges = append(edges, edge.Src.Name().String()+">"+dst.Name().String())
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1}, visits)
	assert.Equal(t, []string{"D", "B", "C", "A"}, order)
	assert.Equal(t, []string{"A>B", "B>D", "A>C", "C>D"}, edges, "edge to visited D still reported")
}

func TestWalk_DefaultRootsAreRegistrationOrder(t *testing.T) {
	u, _ := graph(t, []string{"X", "Y", "Z"}, [][3]string{{"Y", "standard", "Z"}})

	var order []string
	err := u.Walk(nil, domain.WalkOptions{
		Visit: func(d domain.Dependency, _ *domain.DepEdge) error {
			order = append(order, d.Name().String())
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Z", "Y"}, order)
}

func TestWalk_IgnoredEdges(t *testing.T) {
	u, deps := graph(t, []string{"A", "B", "C"}, [][3]string{
		{"A", "build", "B"},
		{"A", "excluded", "C"},
	})

	var visited []string
	var seenEdges int
	err := u.Walk([]domain.Dependency{deps["A"]}, domain.WalkOptions{
		Ignored: domain.DefaultIgnoredEdges,
		Visit: func(d domain.Dependency, _ *domain.DepEdge) error {
			visited = append(visited, d.Name().String())
			return nil
		},
		VisitEdge: func(domain.Dependency, *domain.DepEdge) error {
			seenEdges++
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, visited)
	assert.Equal(t, 2, seenEdges)

	visited = nil
	err = u.Walk([]domain.Dependency{deps["A"]}, domain.WalkOptions{
		Ignored: domain.BuildIgnoredEdges,
		Visit: func(d domain.Dependency, _ *domain.DepEdge) error {
			visited = append(visited, d.Name().String())
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, visited)
}

func TestWalk_PreVisitPrunes(t *testing.T) {
	u, deps := graph(t, []string{"A", "B", "C"}, [][3]string{
		{"A", "standard", "B"},
		{"B", "standard", "C"},
	})

	var visited []string
	err := u.Walk([]domain.Dependency{deps["A"], deps["B"]}, domain.WalkOptions{
		PreVisit: func(d domain.Dependency, _ *domain.DepEdge) bool {
			return d.Name().String() != "B"
		},
		Visit: func(d domain.Dependency, _ *domain.DepEdge) error {
			visited = append(visited, d.Name().String())
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, visited, "pruned B stays visited for the second root")
}

func TestWalk_PathThroughEdges(t *testing.T) {
	u, deps := graph(t, []string{"A", "B", "C"}, [][3]string{
		{"A", "standard", "B"},
		{"B", "build", "C"},
	})

	var path string
	var length int
	err := u.Walk([]domain.Dependency{deps["A"]}, domain.WalkOptions{
		Ignored: domain.BuildIgnoredEdges,
		Visit: func(d domain.Dependency, edge *domain.DepEdge) error {
			if d.Name().String() == "C" {
				path = edge.String()
				length = edge.Len()
			}
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "A -> B", path)
	assert.Equal(t, 2, length)
}

func TestWalk_CallbackErrorAborts(t *testing.T) {
	u, deps := graph(t, []string{"A", "B"}, [][3]string{{"A", "standard", "B"}})
	boom := zerr.New("boom")

	calls := 0
	err := u.Walk([]domain.Dependency{deps["A"]}, domain.WalkOptions{
		Visit: func(domain.Dependency, *domain.DepEdge) error {
			calls++
			return boom
		},
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestCheckCycles(t *testing.T) {
	t.Run("cycle through standard edges", func(t *testing.T) {
		u, deps := graph(t, []string{"A", "B", "C"}, [][3]string{
			{"A", "standard", "B"},
			{"B", "standard", "C"},
			{"C", "standard", "A"},
		})

		err := u.CheckCycles([]domain.Dependency{deps["A"]}, domain.BuildIgnoredEdges)
		require.Error(t, err)
		require.ErrorContains(t, err, domain.ErrCycleDetected.Error())

		var zErr *zerr.Error
		require.ErrorAs(t, err, &zErr)
		assert.Equal(t, "A -> B -> C -> A", zErr.Metadata()["cycle"])
	})

	t.Run("cycle through ignored edge is accepted", func(t *testing.T) {
		u, deps := graph(t, []string{"A", "B"}, [][3]string{
			{"A", "standard", "B"},
			{"B", "excluded", "A"},
		})
		require.NoError(t, u.CheckCycles([]domain.Dependency{deps["A"]}, domain.BuildIgnoredEdges))
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		u, _ := graph(t, []string{"A", "B", "C", "D"}, [][3]string{
			{"A", "standard", "B"},
			{"A", "standard", "C"},
			{"B", "standard", "D"},
			{"C", "standard", "D"},
		})
		require.NoError(t, u.CheckCycles(nil, domain.BuildIgnoredEdges))
	})

	t.Run("self loop", func(t *testing.T) {
		u, deps := graph(t, []string{"A"}, [][3]string{{"A", "build", "A"}})

		err := u.CheckCycles(nil, domain.BuildIgnoredEdges)
		var zErr *zerr.Error
		require.ErrorAs(t, err, &zErr)
		assert.Equal(t, "A -> A", zErr.Metadata()["cycle"])

		require.NoError(t, u.CheckCycles([]domain.Dependency{deps["A"]}, domain.DefaultIgnoredEdges))
	})
}

func TestClosureAndFindPath(t *testing.T) {
	u, deps := graph(t, []string{"A", "B", "C", "D", "E"}, [][3]string{
		{"A", "standard", "B"},
		{"B", "standard", "C"},
		{"A", "annotation-processor", "D"},
		{"D", "standard", "E"},
	})

	closure, err := u.Closure([]domain.Dependency{deps["A"]}, domain.DefaultIgnoredEdges)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, names(closure))

	closure, err = u.Closure([]domain.Dependency{deps["A"]}, domain.BuildIgnoredEdges)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "E", "D", "A"}, names(closure))

	assert.Equal(t, []string{"A", "B", "C"}, names(u.FindPath(deps["A"], deps["C"], domain.DefaultIgnoredEdges)))
	assert.Nil(t, u.FindPath(deps["A"], deps["E"], domain.DefaultIgnoredEdges))
	assert.Equal(t, []string{"A", "D", "E"}, names(u.FindPath(deps["A"], deps["E"], domain.BuildIgnoredEdges)))
}

func TestUniverse(t *testing.T) {
	u, deps := graph(t, []string{"A", "B"}, nil)

	err := u.Add(newFake("A"))
	require.ErrorContains(t, err, domain.ErrDuplicateDependency.Error())

	got, err := u.Lookup("B", "A")
	require.NoError(t, err)
	assert.Equal(t, []domain.Dependency{deps["B"], deps["A"]}, got)

	_, err = u.Lookup("missing")
	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, "missing", zErr.Metadata()["dependency"])

	assert.Equal(t, 2, u.Len())
	assert.Equal(t, "/tmp", u.Dir())
}
