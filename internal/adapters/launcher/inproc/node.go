package inproc

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the in-process launcher Graft node.
const NodeID graft.ID = "adapter.launcher.inproc"

func init() {
	graft.Register(graft.Node[*Launcher]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Launcher, error) {
			return New(), nil
		},
	})
}
