// Package storage keeps relayed images on local disk under unique names.
package storage

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/xid"

	"linkparser/internal/httputil"
)

// blobMode is the permission of stored blobs.
const blobMode = 0644

// Blob is a file written by a Store.
type Blob struct {
	Name string // Unique file name inside the store directory
	Path string // Absolute path on disk
}

// Store writes blobs into a single directory.
type Store struct {
	dir     string
	baseURL string
}

// New creates the directory if needed and returns a store rooted at it.
// baseURL is the public prefix the directory is served under; it may be empty.
func New(dir, baseURL string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory blobs are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Write stores data under a fresh unique name.
// Uses atomic write (write to temp file, then rename) so readers never see a partial blob.
func (s *Store) Write(data []byte) (Blob, error) {
	name := xid.New().String()
	path, err := httputil.SafePath(s.dir, name)
	if err != nil {
		return Blob{}, err
	}

	tmpFile, err := os.CreateTemp(s.dir, "blob-*.tmp")
	if err != nil {
		return Blob{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return Blob{}, fmt.Errorf("writing blob: %w", err)
	}

	// Readable by the web server that serves the upload directory.
	if err := tmpFile.Chmod(blobMode); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return Blob{}, fmt.Errorf("setting blob mode: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return Blob{}, fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Blob{}, fmt.Errorf("renaming blob: %w", err)
	}

	return Blob{Name: name, Path: path}, nil
}

// Delete removes a stored blob. Missing files are not an error.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// URL returns the public URL of b, or its path when no base URL is configured.
func (s *Store) URL(b Blob) string {
	if s.baseURL == "" {
		return b.Path
	}
	return s.baseURL + "/" + b.Name
}
