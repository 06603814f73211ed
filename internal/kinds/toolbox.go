// Package kinds implements the built-in dependency kinds and their build behaviour.
package kinds

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
)

// Toolbox holds the collaborators builders use to touch the outside world.
type Toolbox struct {
	Executor ports.Executor
	Resolver ports.SourceResolver
	Hasher   ports.Hasher
	Fetcher  ports.Fetcher
	Logger   ports.Logger
}

// Archivable is implemented by kinds whose outputs can be packed into a distribution.
type Archivable interface {
	domain.Dependency
	// ArchivableResults returns the absolute paths of the files a distribution should include.
	ArchivableResults(opts *domain.RunOptions) ([]string, error)
}

func readWitness(path string) (string, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the output root
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func writeWitness(path, fingerprint string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrWitnessWriteFailed.Error()), "path", path)
	}
	if err := os.WriteFile(path, []byte(fingerprint+"\n"), 0o600); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrWitnessWriteFailed.Error()), "path", path)
	}
	return nil
}

func removeAll(paths ...string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCleanFailed.Error()), "path", p)
		}
	}
	return nil
}

func abs(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func newestOf(paths []string) domain.TimeStamp {
	ts, _ := domain.Newest(paths)
	return ts
}
