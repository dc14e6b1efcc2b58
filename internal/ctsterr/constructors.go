package ctsterr

import "fmt"

// Diagnostic builds a Config-category error for a single composition-file
// diagnostic at file:line:column, matching the E0xx codes in internal/ctstlang.
func Diagnostic(code, file string, line, column int, message string) *Error {
	return New(CategoryConfig, code, message).
		WithContext("file", file).
		WithContext("line", fmt.Sprintf("%d", line)).
		WithContext("column", fmt.Sprintf("%d", column))
}

// IOFailure wraps a filesystem or syscall error with the path that failed.
func IOFailure(path string, cause error) *Error {
	return Wrapf(cause, CategoryIO, CodeIOFailure, "I/O failure at %s", path).
		WithContext("path", path)
}

// HashMismatch reports a content-hash verification failure.
func HashMismatch(resource, expected, actual string) *Error {
	return Newf(CategoryHashMismatch, CodeHashMismatch,
		"hash mismatch for %s: expected %s, got %s", resource, expected, actual).
		WithContext("resource", resource).
		WithContext("expected", expected).
		WithContext("actual", actual)
}

// NetworkFetch wraps a remote-fetch failure (https:// image/import sources).
func NetworkFetch(url string, cause error) *Error {
	return Wrapf(cause, CategoryIO, CodeNetworkFetch, "failed to fetch %s", url).
		WithContext("url", url)
}

// ContainerNotFound reports a missing container reference.
func ContainerNotFound(ref string) *Error {
	return Newf(CategoryNotFound, CodeContainerNotFound, "no container matches %q", ref).
		WithContext("ref", ref)
}

// ImageNotFound reports a missing image.
func ImageNotFound(id string) *Error {
	return Newf(CategoryNotFound, CodeImageNotFound, "no image %s", id).
		WithContext("id", id)
}

// LayerNotFound reports a missing layer in the content-addressed store.
func LayerNotFound(hash string) *Error {
	return Newf(CategoryNotFound, CodeLayerNotFound, "no layer %s in store", hash).
		WithContext("hash", hash)
}

// StateFileNotFound reports a missing state index file (not itself an error
// condition for first-run callers; see internal/state for the create path).
func StateFileNotFound(path string) *Error {
	return Newf(CategoryNotFound, CodeStateFileNotFound, "state file not found: %s", path).
		WithContext("path", path)
}

// AmbiguousReference reports two or more container records matching the same
// prefix reference.
func AmbiguousReference(ref string, candidates []string) *Error {
	e := Newf(CategoryNotFound, CodeAmbiguousRef, "reference %q is ambiguous", ref).
		WithContext("ref", ref)
	for i, c := range candidates {
		e.WithContext(fmt.Sprintf("candidate[%d]", i), c)
	}
	return e
}

// PermissionDenied reports insufficient privilege for an isolation or
// filesystem operation.
func PermissionDenied(operation string, cause error) *Error {
	return Wrapf(cause, CategoryPermissionDenied, CodePermissionDenied, "permission denied: %s", operation).
		WithContext("operation", operation)
}

// InvalidTransition reports an attempted container state transition that is
// not a legal edge of the state machine.
func InvalidTransition(from, event string) *Error {
	return Newf(CategoryConfig, CodeInvalidTransition, "invalid transition: %s does not accept %s", from, event).
		WithContext("from", from).
		WithContext("event", event)
}

// RestartFromHalted reports an attempt to restart a container that is in a
// terminal (Stopped/Failed) state outside of the restart-policy path.
func RestartFromHalted(from string) *Error {
	return Newf(CategoryConfig, CodeRestartFromHalted, "cannot restart from terminal state %s", from).
		WithContext("from", from)
}

// StateCorrupt reports a state-index parse failure.
func StateCorrupt(path string, cause error) *Error {
	return Wrapf(cause, CategorySerialization, CodeStateCorrupt, "state file is corrupt: %s", path).
		WithContext("path", path)
}

// OfflineFetchForbidden reports an attempt to reach a remote https:// source
// (import or image) while running in offline mode.
func OfflineFetchForbidden(url string) *Error {
	return Newf(CategoryConfig, CodeOfflineRemote, "remote source %s is forbidden in offline mode", url).
		WithContext("url", url)
}

// StateWrite reports a failure while persisting the state index.
func StateWrite(path string, cause error) *Error {
	return Wrapf(cause, CategorySerialization, CodeStateWrite, "failed to write state file: %s", path).
		WithContext("path", path)
}
