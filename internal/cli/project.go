package cli

import (
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"

	"github.com/containust/containust/internal/ctst"
	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/isolation/native"
	"github.com/containust/containust/internal/isolation/vm"
	"github.com/containust/containust/internal/runtime"
	"github.com/containust/containust/internal/secrets"
	"github.com/containust/containust/internal/state"
	"github.com/containust/containust/internal/util"
)

// appDirName is the project-local and home-rooted directory containust
// keeps its state and cache under, per spec.md's "storage layout".
const appDirName = ".ctst"

// resolveEntryPath returns the composition file to load: the --file flag
// if given, else the sole *.ctst file in the current directory.
func resolveEntryPath() (string, error) {
	if entryPath != "" {
		return entryPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(cwd, "*.ctst"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty,
			"no .ctst file found in "+cwd+"; pass one with --file")
	case 1:
		return matches[0], nil
	default:
		return "", ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty,
			"multiple .ctst files found in %s; pass one with --file", cwd)
	}
}

// resolveStateFilePath returns the state index path: --state-file /
// CONTAINUST_STATE_FILE if set, else <project>/.ctst/state.json next to
// the composition file.
func resolveStateFilePath(entry string) string {
	if stateFilePath != "" {
		return stateFilePath
	}
	return filepath.Join(filepath.Dir(entry), appDirName, "state.json")
}

// cacheDir returns the global immutable cache directory: CONTAINUST_DATA_DIR
// if set, else <home>/.ctst/cache.
func cacheDir() (string, error) {
	if dir := os.Getenv("CONTAINUST_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, appDirName, "cache"), nil
}

// secretsDir returns the directory secrets.Resolver falls back to when a
// secret isn't set as a CONTAINUST_SECRET_<NAME> environment variable.
func secretsDir(entry string) string {
	return filepath.Join(filepath.Dir(entry), appDirName, "secrets")
}

// newBackend picks the isolation backend for the current host: Linux gets
// the native namespace backend rooted under the project's .ctst directory;
// every other OS gets the Lima-VM-mediated backend. Either is wrapped in
// runtime.RetryBackend so transient I/O failures (e.g. an overlay mount
// racing a concurrent cleanup) get a few retries before surfacing.
func newBackend(entry string) isolation.Backend {
	var backend isolation.Backend
	if goruntime.GOOS == "linux" {
		backend = native.New(filepath.Join(filepath.Dir(entry), appDirName, "containers"))
	} else {
		backend = vm.New()
	}
	return &runtime.RetryBackend{Backend: backend}
}

// newEngine wires together every piece a command needs to resolve and act
// on a composition: the isolation backend, the image cache, the state
// index, the secrets resolver, and the internal/ctst.Engine over them.
func newEngine(entry string) (*ctst.Engine, error) {
	cache, err := cacheDir()
	if err != nil {
		return nil, err
	}
	images, err := imagestore.Open(cache, offline)
	if err != nil {
		return nil, err
	}
	index := state.OpenIndex(resolveStateFilePath(entry))

	return ctst.NewEngine(ctst.EngineOptions{
		Backend: newBackend(entry),
		Images:  images,
		Index:   index,
		Secrets: secrets.NewResolver(secretsDir(entry)),
		Logger:  util.NewLogger(),
	})
}

// resolveGraph loads and phase-orders the composition at entry, using the
// same cache directory and offline setting as newEngine.
func resolveGraph(entry string) (*ctst.ResolvedGraph, error) {
	cache, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return ctst.NewGraphResolver(cache, offline).Resolve(entry)
}
