package kinds

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/zerr"
)

// DistributionSpec declares where the archive is written.
type DistributionSpec struct {
	// Path is the archive location relative to the output directory. Defaults to <name>.zip.
	Path string
}

// Distribution is a zip archive of the results of its direct dependencies.
type Distribution struct {
	domain.Node
	spec  DistributionSpec
	tools *Toolbox
}

// NewDistribution returns a distribution without edges.
func NewDistribution(name, suite string, spec DistributionSpec, tools *Toolbox) *Distribution {
	return &Distribution{
		Node:  domain.NewNode(name, suite, domain.KindDistribution),
		spec:  spec,
		tools: tools,
	}
}

// BuildTask returns the distribution builder bound to opts.
func (d *Distribution) BuildTask(opts *domain.RunOptions) (domain.Builder, error) {
	return &distributionBuilder{dist: d, opts: opts}, nil
}

// ArchivableResults returns the archive itself, so distributions can nest.
func (d *Distribution) ArchivableResults(opts *domain.RunOptions) ([]string, error) {
	return []string{d.archive(opts)}, nil
}

func (d *Distribution) archive(opts *domain.RunOptions) string {
	p := d.spec.Path
	if p == "" {
		p = d.Name().String() + ".zip"
	}
	return abs(opts.OutputDir(d), p)
}

// member is one archive entry.
type member struct {
	source string
	entry  string
}

// members names each entry <target>/<path>, where path is relative to the target's
// output directory, or the base name for results outside of it.
func (d *Distribution) members(opts *domain.RunOptions) ([]member, error) {
	var out []member
	seen := make(map[string]string)
	for _, e := range d.Edges() {
		if domain.DefaultIgnoredEdges.Has(e.Kind) {
			continue
		}
		a, ok := e.Target.(Archivable)
		if !ok {
			continue
		}
		files, err := a.ArchivableResults(opts)
		if err != nil {
			return nil, err
		}
		dir := opts.OutputDir(e.Target)
		for _, f := range files {
			entry := e.Target.Name().String() + "/" + entryPath(dir, f)
			if prev, dup := seen[entry]; dup {
				if prev == f {
					continue
				}
				return nil, zerr.With(zerr.With(domain.ErrArchiveFailed, "entry", entry), "member", f)
			}
			seen[entry] = f
			out = append(out, member{source: f, entry: entry})
		}
	}
	return out, nil
}

func entryPath(dir, f string) string {
	rel, err := filepath.Rel(dir, f)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(f)
	}
	return filepath.ToSlash(rel)
}

type distributionBuilder struct {
	dist *Distribution
	opts *domain.RunOptions
}

func (b *distributionBuilder) BuildForbidden() bool {
	return !b.opts.KindEnabled(domain.KindDistribution)
}

func (b *distributionBuilder) NewestOutput() domain.TimeStamp {
	return domain.NewTimeStamp(b.dist.archive(b.opts))
}

func (b *distributionBuilder) NeedsBuild(newestInput domain.TimeStamp) (bool, string, error) {
	archive := domain.NewTimeStamp(b.dist.archive(b.opts))
	if !archive.Exists() {
		return true, fmt.Sprintf("%s does not exist", archive.Path()), nil
	}
	if newestInput.Exists() && archive.IsOlderThan(newestInput) {
		return true, fmt.Sprintf("%s is older than %s", archive.Path(), newestInput.Path()), nil
	}

	members, err := b.dist.members(b.opts)
	if err != nil {
		return false, "", err
	}
	sources := make([]string, len(members))
	for i, m := range members {
		sources[i] = m.source
	}
	if archive.IsOlderThanAny(sources) {
		return true, fmt.Sprintf("a member is newer than %s", archive.Path()), nil
	}

	fingerprint, err := b.fingerprint(members)
	if err != nil {
		return false, "", err
	}
	if prev, ok := readWitness(b.opts.WitnessPath(b.dist)); !ok || prev != fingerprint {
		return true, "member set changed", nil
	}
	return false, "archive is up to date", nil
}

func (b *distributionBuilder) Build(_ context.Context, out domain.Output) error {
	members, err := b.dist.members(b.opts)
	if err != nil {
		return err
	}
	archive := b.dist.archive(b.opts)
	if err := writeArchive(archive, members); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out.Stdout, "wrote %s (%d entries)\n", archive, len(members))

	fingerprint, err := b.fingerprint(members)
	if err != nil {
		return err
	}
	return writeWitness(b.opts.WitnessPath(b.dist), fingerprint)
}

func (b *distributionBuilder) Clean(context.Context, bool) error {
	return removeAll(b.dist.archive(b.opts), b.opts.WitnessPath(b.dist))
}

// fingerprint covers the entry names only; content changes are caught by timestamps.
func (b *distributionBuilder) fingerprint(members []member) (string, error) {
	entries := make([]string, len(members))
	for i, m := range members {
		entries[i] = m.entry + "=" + m.source
	}
	return b.dist.tools.Hasher.Fingerprint(entries, nil)
}

func writeArchive(path string, members []member) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "path", path)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // Path is derived from the output root
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "path", path)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(f)
	for _, m := range members {
		if err := addEntry(zw, m); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "path", path)
	}
	if err := f.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "path", path)
	}
	return nil
}

func addEntry(zw *zip.Writer, m member) error {
	src, err := os.Open(m.source) //nolint:gosec // Member paths come from the suite manifest
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "member", m.source)
	}
	defer src.Close() //nolint:errcheck // Read-only file

	w, err := zw.Create(m.entry)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "member", m.source)
	}
	if _, err := io.Copy(w, src); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveFailed.Error()), "member", m.source)
	}
	return nil
}
