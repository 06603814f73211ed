package domain

// Command is a process invocation requested by a builder.
type Command struct {
	// Label prefixes every output line, usually the dependency name.
	Label string
	Args  []string
	Dir   string
	// Env entries override the inherited environment.
	Env map[string]string
}
