// Package suite loads a dependency universe from a mill.yaml manifest.
package suite

import (
	"errors"
	"os"
	"path/filepath"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/mill/internal/kinds"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.SuiteLoader = (*Loader)(nil)

// Loader implements ports.SuiteLoader for YAML manifests.
type Loader struct {
	tools *kinds.Toolbox
}

// NewLoader creates a Loader whose dependencies build with tools.
func NewLoader(tools *kinds.Toolbox) *Loader {
	return &Loader{tools: tools}
}

// linkable is a dependency whose edges the loader can still add.
type linkable interface {
	domain.Dependency
	Link(kind domain.EdgeKind, target domain.Dependency)
}

type declared struct {
	dep  linkable
	dto  DependencyDTO
	line int
}

// Load reads the manifest at path. Relative paths inside it resolve against its directory.
func (l *Loader) Load(path string) (*domain.Universe, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	if manifest.Suite == "" {
		return nil, zerr.With(zerr.With(domain.ErrConfigInvalid, "path", path), "reason", "suite name is required")
	}

	u := domain.NewUniverse(manifest.Suite, path)
	outputRoot := manifest.Settings.OutputRoot
	if outputRoot == "" {
		outputRoot = domain.DefaultOutputRoot
	}
	u.Settings = domain.Settings{
		OutputRoot:     l.resolve(u.Dir(), outputRoot),
		MaxParallelism: manifest.Settings.MaxParallelism,
		Shallow:        manifest.Settings.Shallow,
		FetchAttempts:  manifest.Settings.FetchAttempts,
	}

	decls, err := l.declare(u, &manifest.Dependencies)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	for _, d := range decls {
		if err := l.link(u, d); err != nil {
			return nil, zerr.With(err, "path", path)
		}
	}

	return u, nil
}

// declare creates every dependency in declaration order without edges.
func (l *Loader) declare(u *domain.Universe, deps *yaml.Node) ([]declared, error) {
	if deps.Kind == 0 {
		return nil, nil
	}
	if deps.Kind != yaml.MappingNode {
		return nil, zerr.With(zerr.With(domain.ErrConfigInvalid, "line", deps.Line), "reason", "dependencies must be a mapping")
	}

	decls := make([]declared, 0, len(deps.Content)/2)
	for i := 0; i+1 < len(deps.Content); i += 2 {
		key, value := deps.Content[i], deps.Content[i+1]

		var dto DependencyDTO
		if err := value.Decode(&dto); err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "dependency", key.Value), "line", key.Line)
		}

		dep, err := l.build(u, key.Value, dto)
		if err != nil {
			return nil, zerr.With(zerr.With(err, "dependency", key.Value), "line", key.Line)
		}
		if err := u.Add(dep); err != nil {
			return nil, zerr.With(err, "line", key.Line)
		}
		decls = append(decls, declared{dep: dep, dto: dto, line: key.Line})
	}
	return decls, nil
}

// build creates the kind-specific dependency for one definition.
func (l *Loader) build(u *domain.Universe, name string, dto DependencyDTO) (linkable, error) {
	if dto.Kind == "" {
		dto.Kind = domain.KindProject.String()
	}
	kind, err := domain.ParseKind(dto.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindProject:
		dir := l.resolve(u.Dir(), dto.Dir)
		if dir == "" {
			dir = u.Dir()
		}
		return kinds.NewProject(name, u.Suite(), kinds.ProjectSpec{
			Dir:               dir,
			Sources:           dto.Sources,
			Outputs:           dto.Outputs,
			Command:           dto.Cmd,
			Env:               dto.Env,
			Native:            dto.Native,
			Parallelism:       dto.Parallelism,
			PlatformDependent: dto.PlatformDependent,
		}, l.tools), nil

	case domain.KindLibrary:
		if dto.Path == "" && dto.URL == "" {
			return nil, zerr.With(domain.ErrConfigInvalid, "reason", "a library needs a path or a url")
		}
		path := dto.Path
		if dto.URL == "" {
			// Provided in place, next to the manifest.
			path = l.resolve(u.Dir(), dto.Path)
		}
		return kinds.NewLibrary(name, u.Suite(), kinds.LibrarySpec{
			Path: path,
			URL:  dto.URL,
			Sha:  dto.Sha,
		}, l.tools), nil

	case domain.KindDistribution:
		return kinds.NewDistribution(name, u.Suite(), kinds.DistributionSpec{Path: dto.Path}, l.tools), nil

	case domain.KindJreLibrary:
		return kinds.NewJreLibrary(name, u.Suite(), l.resolve(u.Dir(), dto.Home), dto.Path), nil

	case domain.KindJdkLibrary:
		return kinds.NewJdkLibrary(name, u.Suite(), l.resolve(u.Dir(), dto.Home), dto.Path), nil
	}

	return nil, zerr.With(domain.ErrUnknownKind, "kind", dto.Kind)
}

// link adds the declared edges of d. Standard edges come first, then annotation
// processors, build-order edges and excluded ones, each list in declaration order.
func (l *Loader) link(u *domain.Universe, d declared) error {
	groups := []struct {
		kind  domain.EdgeKind
		names []string
	}{
		{domain.EdgeStandard, d.dto.Deps},
		{domain.EdgeAnnotationProcessor, d.dto.AnnotationProcessors},
		{domain.EdgeBuild, d.dto.BuildDeps},
		{domain.EdgeExcluded, d.dto.Excluded},
	}

	for _, g := range groups {
		for _, name := range g.names {
			target, ok := u.Get(domain.NewName(name))
			if !ok {
				err := zerr.With(domain.ErrUnknownDependency, "dependency", d.dep.Name().String())
				return zerr.With(zerr.With(zerr.With(err, "missing_dependency", name), "edge_kind", g.kind.String()), "line", d.line)
			}
			d.dep.Link(g.kind, target)
		}
	}
	return nil
}

func (l *Loader) resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Discover returns the nearest manifest in dir or one of its parents.
func Discover(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}
	for {
		candidate := filepath.Join(dir, ManifestFile)
		_, err := os.Stat(candidate)
		switch {
		case err == nil:
			return candidate, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(zerr.Wrap(os.ErrNotExist, domain.ErrConfigReadFailed.Error()), "file", ManifestFile)
		}
		dir = parent
	}
}
