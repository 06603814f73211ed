// Package telemetry holds the telemetry adapters that need no recording backend.
package telemetry

import (
	"context"
	"io"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
)

// NoOp is a ports.Telemetry that records nothing.
type NoOp struct{}

// NewNoOp creates a new NoOp.
func NewNoOp() *NoOp {
	return &NoOp{}
}

var _ ports.Telemetry = (*NoOp)(nil)

// Record returns a vertex that records nothing.
func (*NoOp) Record(ctx context.Context, _ string) (context.Context, ports.Vertex) {
	v := &NoOpVertex{}
	return ports.ContextWithVertex(ctx, v), v
}

// Close does nothing.
func (*NoOp) Close() error { return nil }

// NoOpVertex is the vertex handed out by NoOp.
type NoOpVertex struct{}

// Stdout discards what is written to it.
func (v *NoOpVertex) Stdout() io.Writer { return io.Discard }

// Stderr discards what is written to it.
func (v *NoOpVertex) Stderr() io.Writer { return io.Discard }

// Log does nothing.
func (v *NoOpVertex) Log(domain.LogLevel, string) {}

// Complete does nothing.
func (v *NoOpVertex) Complete(error) {}

// Cached does nothing.
func (v *NoOpVertex) Cached() {}
