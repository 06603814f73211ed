package domain

import (
	"path/filepath"

	"go.trai.ch/zerr"
)

// Universe is the set of dependencies known to one invocation.
// It is built by a loader and passed explicitly to walks and to the scheduler.
type Universe struct {
	// Settings are the suite-level defaults declared alongside the dependencies.
	Settings Settings

	suite    string
	manifest string
	order    []Dependency
	byName   map[Name]Dependency
}

// NewUniverse returns an empty universe for the given suite, loaded from manifest.
func NewUniverse(suite, manifest string) *Universe {
	return &Universe{
		suite:    suite,
		manifest: manifest,
		byName:   make(map[Name]Dependency),
	}
}

// Suite returns the primary suite name.
func (u *Universe) Suite() string { return u.suite }

// Manifest returns the path the universe was loaded from.
// Worker processes reload the universe from it.
func (u *Universe) Manifest() string { return u.manifest }

// Dir returns the directory holding the manifest. Relative paths resolve against it.
func (u *Universe) Dir() string { return filepath.Dir(u.manifest) }

// Add registers d. Names must be unique.
func (u *Universe) Add(d Dependency) error {
	if _, exists := u.byName[d.Name()]; exists {
		return zerr.With(ErrDuplicateDependency, "dependency", d.Name().String())
	}
	u.byName[d.Name()] = d
	u.order = append(u.order, d)
	return nil
}

// Get looks up a dependency by name.
func (u *Universe) Get(name Name) (Dependency, bool) {
	d, ok := u.byName[name]
	return d, ok
}

// Lookup resolves names in order, failing on the first unknown one.
func (u *Universe) Lookup(names ...string) ([]Dependency, error) {
	deps := make([]Dependency, 0, len(names))
	for _, n := range names {
		d, ok := u.byName[NewName(n)]
		if !ok {
			return nil, zerr.With(ErrUnknownDependency, "dependency", n)
		}
		deps = append(deps, d)
	}
	return deps, nil
}

// All returns every dependency in registration order.
func (u *Universe) All() []Dependency {
	out := make([]Dependency, len(u.order))
	copy(out, u.order)
	return out
}

// Len returns the number of registered dependencies.
func (u *Universe) Len() int { return len(u.order) }
