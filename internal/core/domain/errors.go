package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicateDependency is returned when two dependencies are registered under the same name.
	ErrDuplicateDependency = zerr.New("dependency already exists")

	// ErrUnknownDependency is returned when a name does not resolve to a registered dependency.
	ErrUnknownDependency = zerr.New("unknown dependency")

	// ErrUnknownKind is returned when a dependency declares a kind that is not supported.
	ErrUnknownKind = zerr.New("unknown dependency kind")

	// ErrUnknownEdgeKind is returned when an edge kind cannot be parsed.
	ErrUnknownEdgeKind = zerr.New("unknown edge kind")

	// ErrCycleDetected is returned when a cycle is detected among the traversed edges.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrWalkInconsistent is returned when the walk reaches a node that is already marked visited
	// through an active edge. It indicates a broken graph invariant, not a user error.
	ErrWalkInconsistent = zerr.New("dependency walk revisited a node through an active edge")

	// ErrNoPath is returned when one dependency does not reach another.
	ErrNoPath = zerr.New("no dependency path")

	// ErrNoTargetsSpecified is returned when a build is requested without roots.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrBuildFailed is returned when one or more build tasks failed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrTaskFailed wraps the error of a single failed build task.
	ErrTaskFailed = zerr.New("task failed")

	// ErrCleanFailed is returned when a task could not remove its outputs.
	ErrCleanFailed = zerr.New("failed to clean outputs")

	// ErrIsolationUnavailable is returned when a task must run in a separate process
	// but the host does not support it.
	ErrIsolationUnavailable = zerr.New("process isolation is not available on this host")

	// ErrWorkerProtocol is returned when a worker process did not report a usable outcome.
	ErrWorkerProtocol = zerr.New("worker returned no outcome")

	// ErrSavedDepsReadFailed is returned when the saved predecessor list cannot be read.
	ErrSavedDepsReadFailed = zerr.New("failed to read saved dependencies")

	// ErrSavedDepsWriteFailed is returned when the saved predecessor list cannot be written.
	ErrSavedDepsWriteFailed = zerr.New("failed to write saved dependencies")

	// ErrWitnessWriteFailed is returned when a witness file cannot be written.
	ErrWitnessWriteFailed = zerr.New("failed to write witness file")

	// ErrConfigReadFailed is returned when the suite manifest cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read suite manifest")

	// ErrConfigParseFailed is returned when the suite manifest cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse suite manifest")

	// ErrConfigInvalid is returned when the suite manifest is structurally invalid.
	ErrConfigInvalid = zerr.New("invalid suite manifest")

	// ErrInputNotFound is returned when a declared source pattern matches nothing.
	ErrInputNotFound = zerr.New("input not found")

	// ErrFetchFailed is returned when a library could not be fetched after all attempts.
	ErrFetchFailed = zerr.New("failed to fetch library")

	// ErrDownloadStatus is returned when a download is answered with a non-success status.
	ErrDownloadStatus = zerr.New("unexpected download status")

	// ErrUnsupportedScheme is returned when a library url uses a scheme that cannot be fetched.
	ErrUnsupportedScheme = zerr.New("unsupported url scheme")

	// ErrChecksumMismatch is returned when a fetched library does not match its declared checksum.
	ErrChecksumMismatch = zerr.New("checksum mismatch")

	// ErrArchiveFailed is returned when a distribution archive cannot be written.
	ErrArchiveFailed = zerr.New("failed to write distribution archive")

	// ErrCommandFailed is returned when a build command exits unsuccessfully.
	ErrCommandFailed = zerr.New("command failed")
)
