package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher provides xxhash fingerprints of build definitions and files.
type Hasher struct {
	workers int
}

// NewHasher creates a new Hasher that reads up to GOMAXPROCS files at once.
func NewHasher() *Hasher {
	return &Hasher{workers: runtime.GOMAXPROCS(0)}
}

// FileHash returns the hex XXHash of a file's content.
func (h *Hasher) FileHash(path string) (string, error) {
	sum, err := h.computeFileHash(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", sum), nil
}

func (h *Hasher) computeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// Fingerprint hashes parts in order, then the path and content hash of each file in order.
// File contents are read in parallel; the result does not depend on scheduling.
func (h *Hasher) Fingerprint(parts []string, files []string) (string, error) {
	sums, err := h.fileHashes(files)
	if err != nil {
		return "", err
	}

	hasher := xxhash.New()
	for _, part := range parts {
		_, _ = hasher.WriteString(part)
		_, _ = hasher.Write([]byte{0}) // Separator
	}
	_, _ = hasher.Write([]byte{0}) // Section separator

	for i, file := range files {
		_, _ = hasher.WriteString(file)
		_, _ = hasher.Write([]byte{0})
		if err := binary.Write(hasher, binary.LittleEndian, sums[i]); err != nil {
			return "", zerr.Wrap(err, "failed to write hash to digest")
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Hasher) fileHashes(files []string) ([]uint64, error) {
	sums := make([]uint64, len(files))

	var g errgroup.Group
	g.SetLimit(max(h.workers, 1))
	for i, file := range files {
		g.Go(func() error {
			sum, err := h.computeFileHash(file)
			if err != nil {
				return err
			}
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}
