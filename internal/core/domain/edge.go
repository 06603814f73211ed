package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// EdgeKind describes why one dependency depends on another.
type EdgeKind uint8

const (
	// EdgeStandard is a regular dependency: the target is needed to build and to use the source.
	EdgeStandard EdgeKind = iota
	// EdgeBuild only orders the build; the target is not part of the source's closure.
	EdgeBuild
	// EdgeAnnotationProcessor marks the target as an annotation processor of the source.
	EdgeAnnotationProcessor
	// EdgeExcluded is kept for bookkeeping and is never traversed for building.
	EdgeExcluded
)

var edgeKindNames = [...]string{
	EdgeStandard:            "standard",
	EdgeBuild:               "build",
	EdgeAnnotationProcessor: "annotation-processor",
	EdgeExcluded:            "excluded",
}

func (k EdgeKind) String() string {
	if int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "unknown"
}

// ParseEdgeKind parses the textual form produced by EdgeKind.String.
func ParseEdgeKind(s string) (EdgeKind, error) {
	for k, name := range edgeKindNames {
		if strings.EqualFold(s, name) {
			return EdgeKind(k), nil
		}
	}
	return 0, zerr.With(ErrUnknownEdgeKind, "edge_kind", s)
}

// EdgeKinds is a set of edge kinds.
type EdgeKinds uint8

// NewEdgeKinds returns the set holding kinds.
func NewEdgeKinds(kinds ...EdgeKind) EdgeKinds {
	var s EdgeKinds
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in the set.
func (s EdgeKinds) Has(k EdgeKind) bool {
	return s&(1<<k) != 0
}

var (
	// DefaultIgnoredEdges is the filter used for dependency resolution and packaging.
	DefaultIgnoredEdges = NewEdgeKinds(EdgeAnnotationProcessor, EdgeExcluded, EdgeBuild)

	// BuildIgnoredEdges is the filter used by the scheduler: build-order and annotation
	// processor edges are genuine ordering constraints there.
	BuildIgnoredEdges = NewEdgeKinds(EdgeExcluded)
)

// Edge is an outgoing, typed edge of a dependency.
type Edge struct {
	Kind   EdgeKind
	Target Dependency
}

// DepEdge is one traversed edge during a walk. Src is the node the edge leaves from and
// Prev is the edge that was used to reach Src (nil when Src is a root).
type DepEdge struct {
	Src  Dependency
	Kind EdgeKind
	Prev *DepEdge
}

// Path returns the nodes from the walk root down to e.Src.
func (e *DepEdge) Path() []Dependency {
	if e == nil {
		return nil
	}
	path := make([]Dependency, 0, e.Len())
	for cur := e; cur != nil; cur = cur.Prev {
		path = append(path, cur.Src)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Len returns the number of edges from the walk root to e.Src, inclusive of e.
func (e *DepEdge) Len() int {
	n := 0
	for cur := e; cur != nil; cur = cur.Prev {
		n++
	}
	return n
}

// String renders the path as "a -> b -> c".
func (e *DepEdge) String() string {
	return FormatPath(e.Path())
}

// FormatPath renders dependencies as "a -> b -> c".
func FormatPath(path []Dependency) string {
	var b strings.Builder
	for i, d := range path {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(d.Name().String())
	}
	return b.String()
}
