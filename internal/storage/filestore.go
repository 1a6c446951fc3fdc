// Package storage keeps uploaded document content on disk and hands out
// opaque references stored on version rows.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type BlobStore interface {
	Save(name string, r io.Reader) (string, error)
	Open(ref string) (io.ReadCloser, error)
	Remove(ref string) error
}

// FileStore writes blobs under a single base directory with uuid names,
// keeping the original extension for convenience.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (fs *FileStore) Save(name string, r io.Reader) (string, error) {
	ref := uuid.New().String() + filepath.Ext(name)

	f, err := os.Create(filepath.Join(fs.baseDir, ref))
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	return ref, nil
}

func (fs *FileStore) Open(ref string) (io.ReadCloser, error) {
	path, err := fs.resolve(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (fs *FileStore) Remove(ref string) error {
	path, err := fs.resolve(ref)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// resolve rejects refs that escape the base directory.
func (fs *FileStore) resolve(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "/") || strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid blob ref %q", ref)
	}
	return filepath.Join(fs.baseDir, ref), nil
}
