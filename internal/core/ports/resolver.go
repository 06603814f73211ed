package ports

// SourceResolver expands declared source patterns into concrete files.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type SourceResolver interface {
	// Resolve expands patterns relative to root. Directories expand to the files they contain.
	// The result is sorted and free of duplicates.
	Resolve(root string, patterns []string) ([]string, error)
}
