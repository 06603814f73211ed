// Package inproc runs tasks as goroutines of the orchestrator process.
package inproc

import (
	"context"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
)

// Launcher implements ports.Launcher by calling the task directly.
type Launcher struct{}

// New creates a new Launcher.
func New() *Launcher {
	return &Launcher{}
}

var _ ports.Launcher = (*Launcher)(nil)

// Available always reports true.
func (*Launcher) Available() bool { return true }

// Launch calls run on the current goroutine.
func (*Launcher) Launch(ctx context.Context, _ domain.Job, _ domain.Output, run ports.RunFunc) (domain.Handoff, error) {
	if err := ctx.Err(); err != nil {
		return domain.Handoff{Outcome: domain.OutcomeFailed}, err
	}
	return run(ctx)
}
