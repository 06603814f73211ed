package suite

import "gopkg.in/yaml.v3"

// ManifestFile is the file name Discover looks for.
const ManifestFile = "mill.yaml"

// Manifest represents the structure of the mill.yaml file.
type Manifest struct {
	Suite    string      `yaml:"suite"`
	Settings SettingsDTO `yaml:"settings"`
	// Dependencies is a mapping from name to DependencyDTO. It is kept as a node
	// because declaration order is registration order.
	Dependencies yaml.Node `yaml:"dependencies"`
}

// SettingsDTO holds the suite-wide defaults.
type SettingsDTO struct {
	OutputRoot     string `yaml:"outputRoot"`
	MaxParallelism int    `yaml:"maxParallelism"`
	Shallow        bool   `yaml:"shallow"`
	FetchAttempts  int    `yaml:"fetchAttempts"`
}

// DependencyDTO represents one dependency definition. Which fields apply depends on Kind.
type DependencyDTO struct {
	Kind string `yaml:"kind"`

	Deps                 []string `yaml:"deps"`
	AnnotationProcessors []string `yaml:"annotationProcessors"`
	BuildDeps            []string `yaml:"buildDeps"`
	Excluded             []string `yaml:"excluded"`

	// project
	Dir               string            `yaml:"dir"`
	Sources           []string          `yaml:"sources"`
	Outputs           []string          `yaml:"outputs"`
	Cmd               []string          `yaml:"cmd"`
	Env               map[string]string `yaml:"env"`
	Native            bool              `yaml:"native"`
	Parallelism       int               `yaml:"parallelism"`
	PlatformDependent bool              `yaml:"platformDependent"`

	// library, distribution, jrelibrary, jdklibrary
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
	Sha  string `yaml:"sha"`
	Home string `yaml:"home"`
}
