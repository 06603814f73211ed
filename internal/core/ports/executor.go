package ports

import (
	"context"

	"go.trai.ch/mill/internal/core/domain"
)

// Executor defines the interface for running build commands.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs cmd and streams its output line by line to out.
	// A non-zero exit is returned as an error carrying the exit code.
	Execute(ctx context.Context, cmd domain.Command, out domain.Output) error
}
