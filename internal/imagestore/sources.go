package imagestore

import (
	"archive/tar"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/identity"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	digest "github.com/opencontainers/go-digest"
	imgspec "github.com/opencontainers/image-spec/specs-go/v1"
)

// resolveFile canonicalises the directory tree at path into a single layer:
// a stable tar stream (sorted entries, zeroed timestamps and ownership) is
// hashed, then the tree is materialised verbatim into the cache under that
// hash.
func (s *Store) resolveFile(path string, expected string) (Layer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Layer{}, ctsterr.IOFailure(path, err)
	}
	if !info.IsDir() {
		return Layer{}, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeInvalidImageURI,
			fmt.Sprintf("file:// source %s is not a directory", path))
	}

	hash, err := hashDirectory(path)
	if err != nil {
		return Layer{}, err
	}
	if err := verifyExpected("file://"+path, hash, expected); err != nil {
		return Layer{}, err
	}

	dest := layerDir(s.cacheDir, hash)
	if err := materialiseIfAbsent(dest, func(staging string) error {
		return copyTree(path, staging)
	}); err != nil {
		return Layer{}, err
	}

	size, err := dirSize(dest)
	if err != nil {
		return Layer{}, err
	}
	return Layer{Hash: hash, Path: dest, Size: size}, nil
}

// resolveTar hashes the raw archive bytes, then extracts the archive into
// the cache under that hash.
func (s *Store) resolveTar(path string, expected string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, ctsterr.IOFailure(path, err)
	}

	hash := identity.NewContentHash(data)
	if err := verifyExpected("tar://"+path, hash, expected); err != nil {
		return Layer{}, err
	}

	dest := layerDir(s.cacheDir, hash)
	var size int64
	if err := materialiseIfAbsent(dest, func(staging string) error {
		var extractErr error
		size, extractErr = extractTar(newTarReader(data), staging)
		return extractErr
	}); err != nil {
		return Layer{}, err
	}
	if size == 0 {
		size, err = dirSize(dest)
		if err != nil {
			return Layer{}, err
		}
	}
	return Layer{Hash: hash, Path: dest, Size: size}, nil
}

// resolveHTTPS fetches url. If the response is an OCI image manifest, every
// layer descriptor it names is fetched and cached individually, each
// verified against its own digest. Otherwise the whole response body is
// treated as a single tar blob, the same shape as resolveTar.
func (s *Store) resolveHTTPS(url string, expected string) ([]Layer, error) {
	if s.offline {
		return nil, ctsterr.OfflineFetchForbidden(url)
	}

	resp, err := http.Get(url)
	if err != nil {
		return nil, ctsterr.NetworkFetch(url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ctsterr.NetworkFetch(url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ctsterr.NetworkFetch(url, err)
	}

	if isManifestMediaType(resp.Header.Get("Content-Type")) {
		return s.resolveManifest(url, body)
	}

	hash := identity.NewContentHash(body)
	if err := verifyExpected(url, hash, expected); err != nil {
		return nil, err
	}
	dest := layerDir(s.cacheDir, hash)
	var size int64
	if err := materialiseIfAbsent(dest, func(staging string) error {
		var extractErr error
		size, extractErr = extractTar(newTarReader(body), staging)
		return extractErr
	}); err != nil {
		return nil, err
	}
	if size == 0 {
		size, err = dirSize(dest)
		if err != nil {
			return nil, err
		}
	}
	return []Layer{{Hash: hash, Path: dest, Size: size}}, nil
}

// resolveManifest fetches and materialises every layer descriptor in an OCI
// manifest, deriving each blob's URL by substituting the manifest's own
// digest path segment for the layer's, per the OCI distribution blob
// convention (".../blobs/<algorithm>:<hex>").
func (s *Store) resolveManifest(manifestURL string, body []byte) ([]Layer, error) {
	var manifest imgspec.Manifest
	if err := jsonUnmarshal(body, &manifest); err != nil {
		return nil, ctsterr.Wrapf(err, ctsterr.CategoryIO, ctsterr.CodeNetworkFetch, "malformed OCI manifest at %s", manifestURL)
	}

	layers := make([]Layer, 0, len(manifest.Layers))
	for _, desc := range manifest.Layers {
		layer, err := s.fetchLayerBlob(manifestURL, desc)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func (s *Store) fetchLayerBlob(manifestURL string, desc imgspec.Descriptor) (Layer, error) {
	blobURL := blobURLFor(manifestURL, desc.Digest)

	resp, err := http.Get(blobURL)
	if err != nil {
		return Layer{}, ctsterr.NetworkFetch(blobURL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Layer{}, ctsterr.NetworkFetch(blobURL, err)
	}

	actual := digest.FromBytes(data)
	if actual != desc.Digest {
		return Layer{}, ctsterr.HashMismatch(blobURL, desc.Digest.String(), actual.String())
	}

	hash, err := identity.ParseContentHash(desc.Digest.String())
	if err != nil {
		return Layer{}, ctsterr.Wrapf(err, ctsterr.CategoryConfig, ctsterr.CodeInvalidImageURI, "unsupported layer digest algorithm in %s", blobURL)
	}

	dest := layerDir(s.cacheDir, hash)
	var size int64
	if err := materialiseIfAbsent(dest, func(staging string) error {
		reader, decErr := decompressReader(desc.MediaType, data)
		if decErr != nil {
			return decErr
		}
		var extractErr error
		size, extractErr = extractTar(reader, staging)
		return extractErr
	}); err != nil {
		return Layer{}, err
	}
	if size == 0 {
		size, err = dirSize(dest)
		if err != nil {
			return Layer{}, err
		}
	}
	return Layer{Hash: hash, Path: dest, Size: size}, nil
}

func blobURLFor(manifestURL string, d digest.Digest) string {
	idx := strings.LastIndex(manifestURL, "/manifests/")
	if idx == -1 {
		return manifestURL
	}
	return manifestURL[:idx] + "/blobs/" + d.String()
}

func isManifestMediaType(contentType string) bool {
	return strings.Contains(contentType, "vnd.oci.image.manifest") ||
		strings.Contains(contentType, "vnd.docker.distribution.manifest")
}

// decompressReader wraps raw layer bytes in a reader that yields the tar
// stream, transparently decompressing gzip- or zstd-compressed layers per
// mediaType.
func decompressReader(mediaType string, data []byte) (io.Reader, error) {
	switch {
	case strings.Contains(mediaType, "gzip"):
		gz, err := gzip.NewReader(newByteReader(data))
		if err != nil {
			return nil, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to open gzip layer")
		}
		return gz, nil
	case strings.Contains(mediaType, "zstd"):
		zr, err := zstd.NewReader(newByteReader(data))
		if err != nil {
			return nil, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to open zstd layer")
		}
		return zr.IOReadCloser(), nil
	default:
		return newByteReader(data), nil
	}
}

func newByteReader(data []byte) io.ReadCloser {
	return io.NopCloser(newReader(data))
}

// verifyExpected compares hash against an operator-supplied expected digest
// string, when one was given. A mismatch is I002/HashMismatch before any
// materialisation happens.
func verifyExpected(resource string, hash identity.ContentHash, expected string) error {
	if expected == "" {
		return nil
	}
	want, err := identity.ParseContentHash(expected)
	if err != nil {
		return ctsterr.Wrapf(err, ctsterr.CategoryConfig, ctsterr.CodeInvalidImageURI, "invalid expected hash for %s", resource)
	}
	if !hash.Equal(want) {
		return ctsterr.HashMismatch(resource, want.String(), hash.String())
	}
	return nil
}

// hashDirectory computes a stable digest over path's contents: entries are
// visited in sorted order and written to a tar stream with zeroed
// timestamps and ownership, so two byte-identical trees hash identically
// regardless of mtimes or the user that created them.
func hashDirectory(path string) (identity.ContentHash, error) {
	var entries []string
	err := filepathWalk(path, func(p string) { entries = append(entries, p) })
	if err != nil {
		return identity.ContentHash{}, ctsterr.IOFailure(path, err)
	}
	sort.Strings(entries)

	hasher := newCanonicalTarHasher()
	for _, p := range entries {
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return identity.ContentHash{}, ctsterr.IOFailure(p, err)
		}
		if err := hasher.addEntry(p, rel); err != nil {
			return identity.ContentHash{}, err
		}
	}
	return hasher.sum(), nil
}

type canonicalTarHasher struct {
	buf strings.Builder
	tw  *tar.Writer
}

func newCanonicalTarHasher() *canonicalTarHasher {
	h := &canonicalTarHasher{}
	h.tw = tar.NewWriter(&stringWriter{&h.buf})
	return h
}

func (h *canonicalTarHasher) addEntry(absPath, relPath string) error {
	info, err := os.Lstat(absPath)
	if err != nil {
		return ctsterr.IOFailure(absPath, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return ctsterr.IOFailure(absPath, err)
	}
	hdr.Name = filepath.ToSlash(relPath)
	hdr.ModTime = time.Unix(0, 0)
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""

	if err := h.tw.WriteHeader(hdr); err != nil {
		return ctsterr.IOFailure(absPath, err)
	}
	if info.Mode().IsRegular() {
		f, err := os.Open(absPath)
		if err != nil {
			return ctsterr.IOFailure(absPath, err)
		}
		defer f.Close()
		if _, err := io.Copy(h.tw, f); err != nil {
			return ctsterr.IOFailure(absPath, err)
		}
	}
	return nil
}

func (h *canonicalTarHasher) sum() identity.ContentHash {
	_ = h.tw.Close()
	return identity.NewContentHash([]byte(h.buf.String()))
}

type stringWriter struct{ sb *strings.Builder }

func (w *stringWriter) Write(p []byte) (int, error) { return w.sb.Write(p) }
