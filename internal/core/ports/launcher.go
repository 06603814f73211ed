package ports

import (
	"context"

	"go.trai.ch/mill/internal/core/domain"
)

// RunFunc executes a task in the calling process.
type RunFunc func(ctx context.Context) (domain.Handoff, error)

// Launcher starts task executions on behalf of the scheduler.
//
//go:generate go run go.uber.org/mock/mockgen -source=launcher.go -destination=mocks/mock_launcher.go -package=mocks
type Launcher interface {
	// Available reports whether the launcher can run tasks on this host.
	Available() bool

	// Launch runs job to completion and returns its handoff.
	// In-process launchers call run; isolating launchers describe the job to a
	// separate process and ignore run. Process output is written to out.
	Launch(ctx context.Context, job domain.Job, out domain.Output, run RunFunc) (domain.Handoff, error)
}
