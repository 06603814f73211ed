package kinds

import (
	"context"

	"go.trai.ch/mill/internal/core/domain"
)

// PlatformLibrary is a library shipped with the Java runtime or JDK. It is never built.
type PlatformLibrary struct {
	domain.Node
	// path is the library location, absolute or relative to home.
	path string
	home string
}

// NewJreLibrary returns a library provided by the Java runtime.
func NewJreLibrary(name, suite, home, path string) *PlatformLibrary {
	return &PlatformLibrary{Node: domain.NewNode(name, suite, domain.KindJreLibrary), home: home, path: path}
}

// NewJdkLibrary returns a library provided by the JDK.
func NewJdkLibrary(name, suite, home, path string) *PlatformLibrary {
	return &PlatformLibrary{Node: domain.NewNode(name, suite, domain.KindJdkLibrary), home: home, path: path}
}

// BuildTask returns a builder that never builds.
func (p *PlatformLibrary) BuildTask(opts *domain.RunOptions) (domain.Builder, error) {
	return &platformBuilder{library: p, opts: opts}, nil
}

// IsPlatformDependent is always true: the library comes from the host installation.
func (p *PlatformLibrary) IsPlatformDependent() bool { return true }

type platformBuilder struct {
	library *PlatformLibrary
	opts    *domain.RunOptions
}

func (b *platformBuilder) BuildForbidden() bool {
	return !b.opts.KindEnabled(b.library.Kind())
}

func (b *platformBuilder) NeedsBuild(domain.TimeStamp) (bool, string, error) {
	return false, "provided by the platform", nil
}

func (b *platformBuilder) NewestOutput() domain.TimeStamp {
	if b.library.home == "" && b.library.path == "" {
		return domain.TimeStamp{}
	}
	return domain.NewTimeStamp(abs(b.library.home, b.library.path))
}

func (b *platformBuilder) Build(context.Context, domain.Output) error { return nil }

func (b *platformBuilder) Clean(context.Context, bool) error { return nil }
