package kinds

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
)

// initialBackoff is the delay before the second fetch attempt. It doubles per attempt.
const initialBackoff = 100 * time.Millisecond

// LibrarySpec declares where a prebuilt artifact lives or comes from.
type LibrarySpec struct {
	// Path is the artifact location. With a URL it is the download destination
	// and defaults to the library's output directory.
	Path string
	URL  string
	// Sha is the expected content hash as produced by the hasher.
	Sha string
}

// Library is a prebuilt artifact, optionally downloaded.
type Library struct {
	domain.Node
	spec  LibrarySpec
	tools *Toolbox
}

// NewLibrary returns a library without edges.
func NewLibrary(name, suite string, spec LibrarySpec, tools *Toolbox) *Library {
	return &Library{
		Node:  domain.NewNode(name, suite, domain.KindLibrary),
		spec:  spec,
		tools: tools,
	}
}

// BuildTask returns the library builder bound to opts.
func (l *Library) BuildTask(opts *domain.RunOptions) (domain.Builder, error) {
	return &libraryBuilder{library: l, opts: opts}, nil
}

// ArchivableResults returns the artifact path.
func (l *Library) ArchivableResults(opts *domain.RunOptions) ([]string, error) {
	return []string{l.path(opts)}, nil
}

func (l *Library) path(opts *domain.RunOptions) string {
	dir := opts.OutputDir(l)
	switch {
	case l.spec.Path != "":
		return abs(dir, l.spec.Path)
	case l.spec.URL != "":
		return abs(dir, path.Base(l.spec.URL))
	default:
		return dir
	}
}

type libraryBuilder struct {
	library *Library
	opts    *domain.RunOptions
}

func (b *libraryBuilder) BuildForbidden() bool {
	return !b.opts.KindEnabled(domain.KindLibrary)
}

func (b *libraryBuilder) NewestOutput() domain.TimeStamp {
	return domain.NewTimeStamp(b.library.path(b.opts))
}

func (b *libraryBuilder) NeedsBuild(domain.TimeStamp) (bool, string, error) {
	if b.library.spec.URL == "" {
		return false, "library is provided in place", nil
	}
	dest := b.library.path(b.opts)
	if !domain.NewTimeStamp(dest).Exists() {
		return true, fmt.Sprintf("%s does not exist", dest), nil
	}
	if err := b.verify(dest); err != nil {
		return true, err.Error(), nil
	}
	return false, "already downloaded", nil
}

// Build downloads the library, retrying with exponential backoff.
func (b *libraryBuilder) Build(ctx context.Context, _ domain.Output) error {
	if b.library.spec.URL == "" {
		return nil
	}
	dest := b.library.path(b.opts)
	attempts := b.opts.Attempts()
	delay := initialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			msg := fmt.Sprintf("%s: fetch attempt %d/%d failed: %v", b.library.Name(), attempt-1, attempts, lastErr)
			b.library.tools.Logger.Warn(msg)
			if v, ok := ports.VertexFromContext(ctx); ok {
				v.Log(domain.LogLevelWarn, msg)
			}
			if err := b.wait(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}

		lastErr = b.library.tools.Fetcher.Fetch(ctx, b.library.spec.URL, dest)
		if lastErr == nil {
			lastErr = b.verify(dest)
		}
		if lastErr == nil {
			return nil
		}
	}

	return errors.Join(domain.ErrFetchFailed, zerr.With(zerr.With(lastErr, "url", b.library.spec.URL), "attempts", attempts))
}

// Clean removes the downloaded jar on an explicit clean only. Before a rebuild the
// jar stays: the fetcher replaces it atomically, so a failed download keeps it.
func (b *libraryBuilder) Clean(_ context.Context, forBuild bool) error {
	if forBuild || b.library.spec.URL == "" {
		return nil
	}
	return removeAll(b.library.path(b.opts))
}

func (b *libraryBuilder) verify(dest string) error {
	if b.library.spec.Sha == "" {
		return nil
	}
	got, err := b.library.tools.Hasher.FileHash(dest)
	if err != nil {
		return err
	}
	if got != b.library.spec.Sha {
		err := zerr.With(domain.ErrChecksumMismatch, "path", dest)
		return zerr.With(zerr.With(err, "expected", b.library.spec.Sha), "actual", got)
	}
	return nil
}

func (b *libraryBuilder) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
