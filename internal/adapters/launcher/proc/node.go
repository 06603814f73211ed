package proc

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the process launcher Graft node.
const NodeID graft.ID = "adapter.launcher.proc"

func init() {
	graft.Register(graft.Node[*Launcher]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Launcher, error) {
			return New(), nil
		},
	})
}
