// Package fetch retrieves library artifacts over HTTP or from the local filesystem.
package fetch

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
	"go.trai.ch/zerr"
	"resty.dev/v3"
)

// DefaultTimeout bounds a single download attempt.
const DefaultTimeout = 5 * time.Minute

var _ ports.Fetcher = (*Fetcher)(nil)

// Fetcher implements ports.Fetcher. Retries are left to the caller.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a Fetcher with DefaultTimeout.
func NewFetcher() *Fetcher {
	return NewFetcherWithClient(resty.New().SetTimeout(DefaultTimeout))
}

// NewFetcherWithClient creates a Fetcher that downloads with client.
func NewFetcherWithClient(client *resty.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch copies the content at rawURL to dest. Supported are http and https urls,
// file urls and plain paths. dest is only replaced once the content is complete.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	src, err := url.Parse(rawURL)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrUnsupportedScheme.Error()), "url", rawURL)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create destination directory"), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create temporary file"), "path", dir)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	switch src.Scheme {
	case "http", "https":
		_ = tmp.Close()
		err = f.download(ctx, rawURL, tmpPath)
	case "file":
		err = copyTo(ctx, tmp, src.Path)
	case "":
		err = copyTo(ctx, tmp, rawURL)
	default:
		_ = tmp.Close()
		err = zerr.With(domain.ErrUnsupportedScheme, "scheme", src.Scheme)
	}
	if err != nil {
		return zerr.With(err, "url", rawURL)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to move download into place"), "path", dest)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, path string) error {
	res, err := f.client.R().
		SetContext(ctx).
		SetOutputFileName(path).
		Get(rawURL)
	if err != nil {
		return zerr.Wrap(err, "download failed")
	}
	if !res.IsSuccess() {
		return zerr.With(domain.ErrDownloadStatus, "status", res.StatusCode())
	}
	return nil
}

// copyTo copies the file at src into dst and closes dst.
func copyTo(ctx context.Context, dst *os.File, src string) (err error) {
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = zerr.Wrap(cerr, "failed to close copy")
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // path comes from the suite manifest
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open source"), "path", src)
	}
	defer func() {
		_ = in.Close()
	}()

	if _, err := io.Copy(dst, in); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to copy source"), "path", src)
	}
	return nil
}
