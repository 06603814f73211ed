package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Kind tags the flavour of a dependency.
type Kind uint8

const (
	// KindProject is a unit built from sources by a command.
	KindProject Kind = iota
	// KindLibrary is a prebuilt artifact fetched from somewhere.
	KindLibrary
	// KindDistribution is an archive assembled from other dependencies.
	KindDistribution
	// KindJreLibrary is provided by the Java runtime and never built.
	KindJreLibrary
	// KindJdkLibrary is provided by the JDK and never built.
	KindJdkLibrary
)

var kindNames = [...]string{
	KindProject:      "project",
	KindLibrary:      "library",
	KindDistribution: "distribution",
	KindJreLibrary:   "jrelibrary",
	KindJdkLibrary:   "jdklibrary",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind parses the textual form produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(k), nil
		}
	}
	return 0, zerr.With(ErrUnknownKind, "kind", s)
}

// Dependency is a named build unit participating in the graph.
//
// Two dependencies with the same Name denote the same node. Topology is fixed once
// the universe holding the dependency has been loaded.
type Dependency interface {
	Name() Name
	// Suite is the owning suite; it namespaces output paths.
	Suite() string
	Kind() Kind
	// Edges returns the outgoing edges in declaration order, including excluded ones.
	Edges() []Edge
	IsPlatformDependent() bool
	// BuildTask returns the kind-specific build behaviour bound to opts.
	BuildTask(opts *RunOptions) (Builder, error)
}

// Node carries the identity and topology shared by every dependency kind.
// Concrete kinds embed it and add BuildTask.
type Node struct {
	name  Name
	suite string
	kind  Kind
	edges []Edge
}

// NewNode returns a node without edges.
func NewNode(name, suite string, kind Kind) Node {
	return Node{name: NewName(name), suite: suite, kind: kind}
}

// Name returns the dependency name.
func (n *Node) Name() Name { return n.name }

// Suite returns the owning suite name.
func (n *Node) Suite() string { return n.suite }

// Kind returns the dependency kind.
func (n *Node) Kind() Kind { return n.kind }

// Edges returns the outgoing edges in declaration order.
func (n *Node) Edges() []Edge { return n.edges }

// IsPlatformDependent reports whether outputs differ per OS/architecture.
func (n *Node) IsPlatformDependent() bool { return false }

// Link appends an outgoing edge. It is meant to be called by loaders only,
// before the universe is handed to a walk.
func (n *Node) Link(kind EdgeKind, target Dependency) {
	n.edges = append(n.edges, Edge{Kind: kind, Target: target})
}

// String returns the dependency name.
func (n *Node) String() string { return n.name.String() }
