package suite

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mill/internal/adapters/fetch"
	"go.trai.ch/mill/internal/adapters/fs"
	"go.trai.ch/mill/internal/adapters/logger"
	"go.trai.ch/mill/internal/adapters/shell"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/mill/internal/kinds"
)

// NodeID is the unique identifier for the suite loader Graft node.
const NodeID graft.ID = "adapter.suite_loader"

func init() {
	graft.Register(graft.Node[ports.SuiteLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			shell.NodeID,
			fs.ResolverNodeID,
			fs.HasherNodeID,
			fetch.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (ports.SuiteLoader, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			resolver, err := graft.Dep[ports.SourceResolver](ctx)
			if err != nil {
				return nil, err
			}

			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewLoader(&kinds.Toolbox{
				Executor: executor,
				Resolver: resolver,
				Hasher:   hasher,
				Fetcher:  fetcher,
				Logger:   log,
			}), nil
		},
	})
}
