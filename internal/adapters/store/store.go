// Package store implements the saved-predecessor sidecar files.
package store

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SavedDepsStore = (*Store)(nil)

// Store implements ports.SavedDepsStore with one newline-separated file per dependency.
// Every file is owned by a single task, so no locking is needed.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Load reads the names recorded at path. A missing file is reported as ok=false.
func (s *Store) Load(path string) ([]string, bool, error) {
	//nolint:gosec // Path is derived from the output root
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, zerr.With(zerr.Wrap(err, domain.ErrSavedDepsReadFailed.Error()), "path", path)
	}

	names := []string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, false, zerr.With(zerr.Wrap(err, domain.ErrSavedDepsReadFailed.Error()), "path", path)
	}
	return names, true, nil
}

// Save writes names to path, replacing any previous record atomically.
func (s *Store) Save(path string, names []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrSavedDepsWriteFailed.Error()), "path", path)
	}

	var buf bytes.Buffer
	for _, n := range names {
		buf.WriteString(n)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrSavedDepsWriteFailed.Error()), "path", path)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.With(zerr.Wrap(err, domain.ErrSavedDepsWriteFailed.Error()), "path", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.With(zerr.Wrap(err, domain.ErrSavedDepsWriteFailed.Error()), "path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.With(zerr.Wrap(err, domain.ErrSavedDepsWriteFailed.Error()), "path", path)
	}
	return nil
}

// Remove deletes the record at path.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrSavedDepsWriteFailed.Error()), "path", path)
	}
	return nil
}
