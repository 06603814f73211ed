package ports

// Hasher computes content fingerprints.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// Fingerprint hashes the given strings and the path and content of every file.
	Fingerprint(parts []string, files []string) (string, error)
	// FileHash returns the content hash of a single file.
	FileHash(path string) (string, error)
}
