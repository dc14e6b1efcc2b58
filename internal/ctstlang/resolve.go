package ctstlang

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Resolver turns an IMPORT path referenced from fromFile into source text
// plus a canonical identity used for import-cycle detection and caching.
type Resolver interface {
	Resolve(fromFile, path string) (canonicalID, src string, err error)
}

// FileResolver implements the spec's three-step import path resolution:
// (a) relative to the importing file's directory, (b) relative to the entry
// file's directory, (c) https:// fetch-and-cache, forbidden in offline mode.
type FileResolver struct {
	EntryDir string
	CacheDir string // where fetched https:// imports are cached
	Offline  bool

	httpClient *http.Client
}

// NewFileResolver creates a FileResolver rooted at entryDir.
func NewFileResolver(entryDir, cacheDir string, offline bool) *FileResolver {
	return &FileResolver{
		EntryDir:   entryDir,
		CacheDir:   cacheDir,
		Offline:    offline,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *FileResolver) Resolve(fromFile, path string) (string, string, error) {
	if strings.HasPrefix(path, "https://") {
		return r.resolveHTTPS(path)
	}
	if strings.HasPrefix(path, "http://") {
		return "", "", fmt.Errorf("insecure http:// imports are not supported: %s", path)
	}

	// (a) relative to the importing file's directory.
	candidate := filepath.Join(filepath.Dir(fromFile), path)
	if src, err := os.ReadFile(candidate); err == nil {
		abs, _ := filepath.Abs(candidate)
		return abs, string(src), nil
	}

	// (b) relative to the entry file's directory.
	candidate = filepath.Join(r.EntryDir, path)
	src, err := os.ReadFile(candidate)
	if err != nil {
		return "", "", fmt.Errorf("could not resolve import %q from %s: %w", path, fromFile, err)
	}
	abs, _ := filepath.Abs(candidate)
	return abs, string(src), nil
}

func (r *FileResolver) resolveHTTPS(url string) (string, string, error) {
	if r.Offline {
		return "", "", fmt.Errorf("offline mode forbids remote import %s", url)
	}

	cachePath := filepath.Join(r.CacheDir, cacheKeyFor(url))
	if cached, err := os.ReadFile(cachePath); err == nil {
		return url, string(cached), nil
	}

	resp, err := r.httpClient.Get(url)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch import %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch import %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read import %s: %w", url, err)
	}

	if r.CacheDir != "" {
		_ = os.MkdirAll(r.CacheDir, 0o755)
		_ = os.WriteFile(cachePath, body, 0o644)
	}
	return url, string(body), nil
}

func cacheKeyFor(url string) string {
	sum := 2166136261
	for _, b := range []byte(url) {
		sum ^= int(b)
		sum *= 16777619
	}
	return fmt.Sprintf("%x.ctst", uint32(sum))
}
