package domain

import (
	"path/filepath"
	"slices"
	"time"
)

// RunOptions are the run-wide settings shared by every task of one invocation.
// They are JSON-encoded into worker requests; every field but Progress must survive a round trip.
type RunOptions struct {
	Force          bool          `json:"force,omitempty"`
	Clean          bool          `json:"clean,omitempty"`
	Only           []string      `json:"only,omitempty"`
	MaxParallelism int           `json:"maxParallelism,omitempty"`
	Serial         bool          `json:"serial,omitempty"`
	Shallow        bool          `json:"shallow,omitempty"`
	Isolate        bool          `json:"isolate,omitempty"`
	DisabledKinds  []Kind        `json:"disabledKinds,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	Verbose        int           `json:"verbose,omitempty"`
	OutputRoot     string        `json:"outputRoot,omitempty"`
	FetchAttempts  int           `json:"fetchAttempts,omitempty"`
	// Progress renders a live task list. Workers never draw one.
	Progress bool `json:"-"`
}

// DefaultFetchAttempts bounds download retries when the manifest does not say otherwise.
const DefaultFetchAttempts = 3

// Budget returns the CPU budget for a host with cpus logical CPUs.
func (o *RunOptions) Budget(cpus int) int {
	budget := cpus
	if o.MaxParallelism > 0 && o.MaxParallelism < budget {
		budget = o.MaxParallelism
	}
	return max(budget, 1)
}

// KindEnabled reports whether tasks of kind k should run.
func (o *RunOptions) KindEnabled(k Kind) bool {
	return !slices.Contains(o.DisabledKinds, k)
}

// OnlySet returns the explicit subset as names, or nil when every task runs.
func (o *RunOptions) OnlySet() map[Name]struct{} {
	if len(o.Only) == 0 {
		return nil
	}
	set := make(map[Name]struct{}, len(o.Only))
	for _, n := range o.Only {
		set[NewName(n)] = struct{}{}
	}
	return set
}

// Attempts returns the fetch attempt bound, at least one.
func (o *RunOptions) Attempts() int {
	if o.FetchAttempts <= 0 {
		return DefaultFetchAttempts
	}
	return o.FetchAttempts
}

// DefaultOutputRoot is used when neither the manifest nor the command line name one.
const DefaultOutputRoot = "mill-out"

// OutputDir returns the per-dependency output area.
func (o *RunOptions) OutputDir(d Dependency) string {
	return filepath.Join(o.outputRoot(), d.Suite(), d.Name().String())
}

// SavedDepsPath returns where the predecessor list of d is persisted.
func (o *RunOptions) SavedDepsPath(d Dependency) string {
	return filepath.Join(o.outputRoot(), d.Suite(), "savedDeps", d.Name().String())
}

// WitnessPath returns the fingerprint file recording how the outputs of d were produced.
func (o *RunOptions) WitnessPath(d Dependency) string {
	return filepath.Join(o.OutputDir(d), ".witness")
}

// outputRoot is always absolute: commands run in their own directories and must
// resolve the same output paths as mill does.
func (o *RunOptions) outputRoot() string {
	root := o.OutputRoot
	if root == "" {
		root = DefaultOutputRoot
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// Settings are defaults declared by a suite. Explicit run options win over them.
type Settings struct {
	OutputRoot     string
	MaxParallelism int
	Shallow        bool
	FetchAttempts  int
}

// Apply fills zero-valued fields of opts from s.
func (s Settings) Apply(opts *RunOptions) {
	if opts.OutputRoot == "" {
		opts.OutputRoot = s.OutputRoot
	}
	if opts.MaxParallelism == 0 {
		opts.MaxParallelism = s.MaxParallelism
	}
	if !opts.Shallow {
		opts.Shallow = s.Shallow
	}
	if opts.FetchAttempts == 0 {
		opts.FetchAttempts = s.FetchAttempts
	}
}
