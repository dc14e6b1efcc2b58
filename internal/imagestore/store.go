package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/identity"
)

// Store is the content-addressed layer cache for one project. It resolves
// image source URIs to verified layer sets and tracks how many images
// reference each cached layer.
type Store struct {
	cacheDir string
	offline  bool
	refs     *refcounts
}

// Open returns a Store rooted at cacheDir, creating it if necessary.
// cacheDir holds both the extracted layer trees (under layers/) and the
// bbolt-backed refcount database (layers.db).
func Open(cacheDir string, offline bool) (*Store, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, ctsterr.IOFailure(cacheDir, err)
	}
	refs, err := openRefcounts(filepath.Join(cacheDir, "layers.db"))
	if err != nil {
		return nil, err
	}
	return &Store{cacheDir: cacheDir, offline: offline, refs: refs}, nil
}

func (s *Store) Close() error { return s.refs.Close() }

// Resolve resolves uri to an ordered list of verified layers and acquires a
// reference on each. expectedHash, if non-empty, is checked for file:// and
// tar:// sources and single-blob https:// sources (full manifests verify
// each layer against its own descriptor digest instead).
func (s *Store) Resolve(uri, expectedHash string) ([]Layer, error) {
	layers, err := s.resolveURI(uri, expectedHash)
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		if _, err := s.refs.Acquire(l.Hash); err != nil {
			return nil, err
		}
	}
	return layers, nil
}

// Release drops one reference on every layer in layers. A layer whose
// count reaches zero is eligible for removal but is not deleted here:
// eviction happens explicitly via Remove, matching spec.md's "ctst images
// --remove refuses while referenced" contract — removal is a deliberate
// operator action, not an automatic side effect of a container's teardown.
func (s *Store) Release(layers []Layer) error {
	for _, l := range layers {
		if _, err := s.refs.Release(l.Hash); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a layer's materialised contents from the cache. It refuses
// while the layer is still referenced by any image.
func (s *Store) Remove(hash identity.ContentHash) error {
	count, err := s.refs.Count(hash)
	if err != nil {
		return err
	}
	if count > 0 {
		return ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeConfigInvalid,
			"layer %s is still referenced by %d image(s)", hash.Hex()[:12], count)
	}
	return os.RemoveAll(layerDir(s.cacheDir, hash))
}

// CachedLayer is one entry in the cache, as reported by List.
type CachedLayer struct {
	Layer
	RefCount int
}

// List enumerates every layer materialised in the cache, for the `ctst
// images` verb.
func (s *Store) List() ([]CachedLayer, error) {
	root := filepath.Join(s.cacheDir, "layers")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ctsterr.IOFailure(root, err)
	}

	out := make([]CachedLayer, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		hash, err := identity.ParseContentHash("sha256:" + entry.Name())
		if err != nil {
			continue
		}
		dest := layerDir(s.cacheDir, hash)
		size, err := dirSize(dest)
		if err != nil {
			return nil, err
		}
		count, err := s.refs.Count(hash)
		if err != nil {
			return nil, err
		}
		out = append(out, CachedLayer{Layer: Layer{Hash: hash, Path: dest, Size: size}, RefCount: count})
	}
	return out, nil
}

func (s *Store) resolveURI(uri, expectedHash string) ([]Layer, error) {
	switch {
	case strings.HasPrefix(uri, "file://"):
		l, err := s.resolveFile(strings.TrimPrefix(uri, "file://"), expectedHash)
		if err != nil {
			return nil, err
		}
		return []Layer{l}, nil
	case strings.HasPrefix(uri, "tar://"):
		l, err := s.resolveTar(strings.TrimPrefix(uri, "tar://"), expectedHash)
		if err != nil {
			return nil, err
		}
		return []Layer{l}, nil
	case strings.HasPrefix(uri, "https://"):
		return s.resolveHTTPS(uri, expectedHash)
	case strings.HasPrefix(uri, "http://"):
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeInvalidImageURI,
			fmt.Sprintf("image source %q uses http://, which is rejected: use https://", uri))
	default:
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeInvalidImageURI,
			fmt.Sprintf("unsupported image source scheme in %q", uri))
	}
}
