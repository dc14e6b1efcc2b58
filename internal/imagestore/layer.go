// Package imagestore resolves image source URIs (file://, tar://, https://)
// into verified, content-addressed layer sets cached under a project-local
// directory, and tracks how many images reference each cached layer.
package imagestore

import (
	"path/filepath"

	"github.com/containust/containust/internal/identity"
)

// Layer is one materialised, content-addressed filesystem fragment.
type Layer struct {
	Hash identity.ContentHash
	// Path is the absolute path to the layer's materialised contents: a
	// directory for file:// and tar:// sources, always a directory once
	// extraction completes (tar archives are never kept packed in the
	// cache, since the isolation backend mounts directory trees).
	Path string
	Size int64
}

// layerDir returns the cache-relative directory a layer with the given hash
// is stored under: <cache>/layers/<hex>, with no algorithm segment (every
// layer hash is sha256).
func layerDir(cacheDir string, hash identity.ContentHash) string {
	return filepath.Join(cacheDir, "layers", hash.Hex())
}
