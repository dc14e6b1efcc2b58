package imagestore

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/containust/containust/internal/ctsterr"
)

func newReader(data []byte) io.Reader { return bytes.NewReader(data) }

func jsonUnmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// newTarReader opens data as a tar stream, transparently gunzipping it if
// the magic bytes indicate a gzip-compressed archive (the .tar.gz shape
// produced by most tar:// and raw-https:// sources in practice).
func newTarReader(data []byte) io.Reader {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := decompressReader("gzip", data)
		if err == nil {
			return gz
		}
	}
	return bytes.NewReader(data)
}

// filepathWalk calls visit for every regular file and directory entry
// (excluding the root itself) under root, in filesystem-traversal order;
// callers sort the collected paths themselves since the visitor order is
// not guaranteed stable across platforms.
func filepathWalk(root string, visit func(path string)) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}
		visit(path)
		return nil
	})
}

// copyTree copies the directory tree at src into dst, preserving regular
// file contents and mode bits. Used to materialise a file:// source into
// the layer cache once its canonical hash has been computed.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return os.MkdirAll(target, 0o755)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode())
		default:
			return nil // symlinks and special files are not part of the canonical hash either
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// extractTar reads a tar stream from r and writes its entries under dst,
// returning the total number of uncompressed bytes written.
func extractTar(r io.Reader, dst string) (int64, error) {
	tr := tar.NewReader(r)
	var total int64

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to read tar entry")
		}

		target := filepath.Join(dst, filepath.Clean(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)|0o700); err != nil {
				return total, ctsterr.IOFailure(target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return total, ctsterr.IOFailure(target, err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)|0o600)
			if err != nil {
				return total, ctsterr.IOFailure(target, err)
			}
			n, err := io.Copy(f, tr)
			f.Close()
			total += n
			if err != nil {
				return total, ctsterr.IOFailure(target, err)
			}
		default:
			// symlinks, devices, etc. are skipped: the native backend's
			// overlay mount never needs them reproduced in the cache.
		}
	}
	return total, nil
}

// dirSize sums the size of every regular file under dir.
func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, ctsterr.IOFailure(dir, err)
	}
	return total, nil
}

// materialiseIfAbsent runs fn to populate a staging directory and renames
// it into dest, only if dest does not already exist — giving layer caching
// its "never duplicate blobs" property (a second component resolving the
// same content hash is a no-op) while never leaving a half-populated dest
// behind if fn fails partway through.
func materialiseIfAbsent(dest string, fn func(stagingDir string) error) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return ctsterr.IOFailure(dest, err)
	}

	tmp := dest + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return ctsterr.IOFailure(tmp, err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return ctsterr.IOFailure(tmp, err)
	}

	if err := fn(tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ctsterr.IOFailure(dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		return ctsterr.IOFailure(dest, err)
	}
	return nil
}
