package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mill/internal/core/ports"
)

// NodeID is the unique identifier for the saved-deps store Graft node.
const NodeID graft.ID = "adapter.saved_deps_store"

func init() {
	graft.Register(graft.Node[ports.SavedDepsStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.SavedDepsStore, error) {
			return NewStore(), nil
		},
	})
}
