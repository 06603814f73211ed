package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mill/internal/adapters/launcher/inproc" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/mill/internal/adapters/launcher/proc"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/mill/internal/adapters/logger"          //nolint:depguard // Wired in engine wiring
	"go.trai.ch/mill/internal/adapters/store"           //nolint:depguard // Wired in engine wiring
	"go.trai.ch/mill/internal/adapters/telemetry/progrock"
	"go.trai.ch/mill/internal/core/ports"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			inproc.NodeID,
			proc.NodeID,
			progrock.NodeID,
			store.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			local, err := graft.Dep[*inproc.Launcher](ctx)
			if err != nil {
				return nil, err
			}

			isolated, err := graft.Dep[*proc.Launcher](ctx)
			if err != nil {
				return nil, err
			}

			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			savedDeps, err := graft.Dep[ports.SavedDepsStore](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(
				Launchers{Local: local, Isolated: isolated},
				telemetry,
				savedDeps,
				log,
			), nil
		},
	})
}
