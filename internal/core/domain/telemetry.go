package domain

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// LevelForVerbosity maps the number of -v flags to the minimum level that is printed.
func LevelForVerbosity(verbose int) LogLevel {
	if verbose > 0 {
		return LogLevelDebug
	}
	return LogLevelInfo
}

// Cached reports whether the outcome should be shown as a cache hit in progress output.
func (o Outcome) Cached() bool {
	return o == OutcomeSkipped || o == OutcomeSatisfied
}
