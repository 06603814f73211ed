package ports

// SavedDepsStore persists the ordered predecessor names a task was last built with.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type SavedDepsStore interface {
	// Load returns the recorded names. ok is false when there is no prior record.
	Load(path string) (names []string, ok bool, err error)
	// Save replaces the record at path.
	Save(path string, names []string) error
	// Remove deletes the record at path. A missing record is not an error.
	Remove(path string) error
}
