// Package progrock provides the Progrock implementation of the telemetry adapter.
package progrock

import (
	"context"
	"errors"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/mill/internal/adapters/telemetry"
	"go.trai.ch/mill/internal/core/ports"
)

// Recorder implements the ports.Telemetry interface using the vito/progrock library.
type Recorder struct {
	w   progrock.Writer
	out *fanout
	rec *progrock.Recorder

	mu     sync.Mutex
	closed bool
}

// New creates a new Recorder with a default tape.
func New() *Recorder {
	tape := progrock.NewTape()
	return NewRecorder(tape)
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	out := &fanout{primary: w}
	return &Recorder{
		w:   w,
		out: out,
		rec: progrock.NewRecorder(out),
	}
}

// Subscribe forwards every later status update to w as well. The returned
// function stops forwarding; it does not close w.
func (r *Recorder) Subscribe(w progrock.Writer) func() {
	return r.out.add(w)
}

var _ ports.Telemetry = (*Recorder)(nil)

// Record starts recording a new vertex. Task names are unique within a run,
// so the digest of the name identifies the vertex. Once the recorder is closed,
// vertices record nothing.
func (r *Recorder) Record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return telemetry.NewNoOp().Record(ctx, name)
	}

	d := digest.FromString(name)
	v := r.rec.Vertex(d, name)
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

// Close flushes and closes the recording session. Closing twice is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	// If the writer implements Close, call it.
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// fanout writes to the primary writer and then to each subscriber.
type fanout struct {
	primary progrock.Writer

	mu   sync.Mutex
	next int
	subs []subscriber
}

type subscriber struct {
	id int
	w  progrock.Writer
}

func (f *fanout) add(w progrock.Writer) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs = append(f.subs, subscriber{id: id, w: w})

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, s := range f.subs {
			if s.id == id {
				f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

func (f *fanout) WriteStatus(update *progrock.StatusUpdate) error {
	err := f.primary.WriteStatus(update)

	f.mu.Lock()
	subs := make([]subscriber, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, s := range subs {
		err = errors.Join(err, s.w.WriteStatus(update))
	}
	return err
}

// Close closes the primary writer only. Subscribers own their writers.
func (f *fanout) Close() error {
	return f.primary.Close()
}
