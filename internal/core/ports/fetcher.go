package ports

import "context"

// Fetcher retrieves a remote or local artifact into a file.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch copies the content at url to dest, replacing dest only on success.
	Fetch(ctx context.Context, url, dest string) error
}
