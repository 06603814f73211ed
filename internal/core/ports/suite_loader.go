package ports

import "go.trai.ch/mill/internal/core/domain"

// SuiteLoader defines the interface for loading the dependency universe.
//
//go:generate go run go.uber.org/mock/mockgen -source=suite_loader.go -destination=mocks/mock_suite_loader.go -package=mocks
type SuiteLoader interface {
	// Load reads the suite manifest at path and returns every declared dependency.
	Load(path string) (*domain.Universe, error)
}
