// blob.go - Blob storage behind an opaque-key interface.
//
// The default backend writes to a local directory. Keys are always
// server-generated and flat; anything that looks like a path is rejected
// before it reaches the filesystem.
package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore is the storage collaborator: write, read and delete by an
// opaque server-generated key. Remove is idempotent - deleting a key that
// is already gone is not an error.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// DiskStore keeps blobs as flat files under a single root directory.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// validKey rejects anything that could escape the root. Keys are generated
// by newStorageKey so this only fires on programming errors.
func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.ContainsAny(key, "/\\") || key == "." || key == ".." {
		return fmt.Errorf("invalid blob key: %q", key)
	}
	return nil
}

func (d *DiskStore) path(key string) string {
	return filepath.Join(d.root, key)
}

func (d *DiskStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	if err := validKey(key); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(d.path(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(d.path(key))
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(d.path(key))
		return 0, fmt.Errorf("close blob: %w", err)
	}
	return n, nil
}

func (d *DiskStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (d *DiskStore) Remove(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Check reports whether the root directory is usable. Used by the health
// endpoint.
func (d *DiskStore) Check(_ context.Context) error {
	info, err := os.Stat(d.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fs.ErrInvalid
	}
	return nil
}
