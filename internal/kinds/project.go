package kinds

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/zerr"
)

// ProjectSpec declares how a project is built.
type ProjectSpec struct {
	// Dir is the project directory. Sources resolve against it and the command runs in it.
	Dir string
	// Sources are file or glob patterns relative to Dir.
	Sources []string
	// Outputs are paths relative to the project's output directory.
	Outputs []string
	Command []string
	Env     map[string]string
	// Native projects track fine-grained staleness themselves.
	Native bool
	// Parallelism is the number of CPUs the command keeps busy.
	Parallelism       int
	PlatformDependent bool
}

// Project is a unit built from sources by running a command.
type Project struct {
	domain.Node
	spec  ProjectSpec
	tools *Toolbox
}

// NewProject returns a project without edges.
func NewProject(name, suite string, spec ProjectSpec, tools *Toolbox) *Project {
	return &Project{
		Node:  domain.NewNode(name, suite, domain.KindProject),
		spec:  spec,
		tools: tools,
	}
}

// IsPlatformDependent reports whether outputs differ per OS/architecture.
func (p *Project) IsPlatformDependent() bool { return p.spec.PlatformDependent }

// BuildTask returns the project builder bound to opts.
func (p *Project) BuildTask(opts *domain.RunOptions) (domain.Builder, error) {
	return &projectBuilder{project: p, opts: opts}, nil
}

// ArchivableResults returns the declared outputs.
func (p *Project) ArchivableResults(opts *domain.RunOptions) ([]string, error) {
	return p.outputs(opts), nil
}

func (p *Project) outputs(opts *domain.RunOptions) []string {
	dir := opts.OutputDir(p)
	out := make([]string, len(p.spec.Outputs))
	for i, o := range p.spec.Outputs {
		out[i] = abs(dir, o)
	}
	return out
}

type projectBuilder struct {
	project *Project
	opts    *domain.RunOptions

	sources     []string
	fingerprint string
}

func (b *projectBuilder) BuildForbidden() bool {
	return !b.opts.KindEnabled(domain.KindProject)
}

func (b *projectBuilder) IsNative() bool { return b.project.spec.Native }

func (b *projectBuilder) Parallelism() int { return max(b.project.spec.Parallelism, 1) }

// Prepare creates the output directory so that a worker process finds it in place.
func (b *projectBuilder) Prepare(context.Context) error {
	dir := b.opts.OutputDir(b.project)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}
	return nil
}

func (b *projectBuilder) NewestOutput() domain.TimeStamp {
	return newestOf(b.project.outputs(b.opts))
}

func (b *projectBuilder) NeedsBuild(newestInput domain.TimeStamp) (bool, string, error) {
	outputs := b.project.outputs(b.opts)
	if len(outputs) == 0 && len(b.project.spec.Command) == 0 {
		return false, "nothing to build", nil
	}

	oldest := domain.Oldest(outputs)
	if len(outputs) > 0 {
		if !oldest.Exists() {
			return true, fmt.Sprintf("%s does not exist", oldest.Path()), nil
		}
		if newestInput.Exists() && oldest.IsOlderThan(newestInput) {
			return true, fmt.Sprintf("%s is older than %s", oldest.Path(), newestInput.Path()), nil
		}
	}

	sources, err := b.resolveSources()
	if err != nil {
		return false, "", err
	}
	if len(outputs) > 0 {
		for _, src := range sources {
			if oldest.IsOlderThanAny([]string{src}) {
				return true, fmt.Sprintf("%s is newer than %s", src, oldest.Path()), nil
			}
		}
	}

	fingerprint, err := b.computeFingerprint(sources)
	if err != nil {
		return false, "", err
	}
	if prev, ok := readWitness(b.opts.WitnessPath(b.project)); !ok || prev != fingerprint {
		return true, "command or source set changed", nil
	}
	return false, "outputs are up to date", nil
}

func (b *projectBuilder) Build(ctx context.Context, out domain.Output) error {
	dir := b.opts.OutputDir(b.project)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}

	sources, err := b.resolveSources()
	if err != nil {
		return err
	}

	if len(b.project.spec.Command) > 0 {
		cmd := domain.Command{
			Label: b.project.Name().String(),
			Args:  b.project.spec.Command,
			Dir:   b.project.spec.Dir,
			Env:   b.env(dir, domain.WidthFromContext(ctx, b.Parallelism())),
		}
		if err := b.project.tools.Executor.Execute(ctx, cmd, out); err != nil {
			return err
		}
	}

	fingerprint, err := b.computeFingerprint(sources)
	if err != nil {
		return err
	}
	return writeWitness(b.opts.WitnessPath(b.project), fingerprint)
}

func (b *projectBuilder) Clean(_ context.Context, forBuild bool) error {
	if !forBuild {
		return removeAll(b.opts.OutputDir(b.project))
	}
	return removeAll(append(b.project.outputs(b.opts), b.opts.WitnessPath(b.project))...)
}

func (b *projectBuilder) env(outputDir string, width int) map[string]string {
	env := make(map[string]string, len(b.project.spec.Env)+2)
	for k, v := range b.project.spec.Env {
		env[k] = v
	}
	env["MILL_OUTPUT_DIR"] = outputDir
	env["MILL_PARALLELISM"] = strconv.Itoa(width)
	return env
}

func (b *projectBuilder) resolveSources() ([]string, error) {
	if b.sources != nil || len(b.project.spec.Sources) == 0 {
		return b.sources, nil
	}
	sources, err := b.project.tools.Resolver.Resolve(b.project.spec.Dir, b.project.spec.Sources)
	if err != nil {
		return nil, zerr.With(err, "dependency", b.project.Name().String())
	}
	b.sources = sources
	return sources, nil
}

func (b *projectBuilder) computeFingerprint(sources []string) (string, error) {
	if b.fingerprint != "" {
		return b.fingerprint, nil
	}
	parts := slices.Concat(b.project.spec.Command, []string{"--"}, b.project.spec.Outputs)
	fp, err := b.project.tools.Hasher.Fingerprint(parts, sources)
	if err != nil {
		return "", err
	}
	b.fingerprint = fp
	return fp, nil
}
