package store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const tmpDir = ".tmp"

// LocalStore implements ObjectStore on top of an afero filesystem.
//
// Storage layout:
//
//	basePath/
//	  .tmp/            (in-flight writes, renamed into place when complete)
//	  bucket/
//	    key            (object content, keys may contain '/')
//
// Backed by afero.NewOsFs it is a directory mirror of a bucket; backed by
// afero.NewMemMapFs it is an in-memory store for tests.
type LocalStore struct {
	fs       afero.Fs
	basePath string
}

// NewLocalStore creates a store rooted at basePath on fsys.
func NewLocalStore(fsys afero.Fs, basePath string) (*LocalStore, error) {
	if err := fsys.MkdirAll(filepath.Join(basePath, tmpDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", basePath, err)
	}
	return &LocalStore{fs: fsys, basePath: basePath}, nil
}

// NewDirStore creates a store rooted at a directory on the host filesystem.
func NewDirStore(dir string) (*LocalStore, error) {
	return NewLocalStore(afero.NewOsFs(), dir)
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *LocalStore {
	s, err := NewLocalStore(afero.NewMemMapFs(), "/")
	if err != nil {
		// MkdirAll on a fresh MemMapFs cannot fail.
		panic(err)
	}
	return s
}

// List returns every object in the bucket, sorted by key. A bucket that was
// never written to is empty.
func (s *LocalStore) List(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return nil, err
	}

	exists, err := afero.DirExists(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat bucket %s: %w", bucket, err)
	}
	if !exists {
		return nil, nil
	}

	var objects []ObjectInfo
	err = afero.Walk(s.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:  filepath.ToSlash(rel),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Get retrieves an object by key.
func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Put streams r into a temporary file and renames it over the key, so a
// reader never observes a partially written object.
func (s *LocalStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}

	tmp, err := afero.TempFile(s.fs, filepath.Join(s.basePath, tmpDir), "put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer s.fs.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("failed to write object: wrote %d bytes, expected %d", n, size)
	}

	if err := s.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := s.fs.Rename(tmpName, p); err != nil {
		return fmt.Errorf("failed to move object into place: %w", err)
	}
	return nil
}

// Delete removes an object.
func (s *LocalStore) Delete(ctx context.Context, bucket, key string) error {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *LocalStore) bucketPath(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || strings.HasPrefix(bucket, ".") {
		return "", fmt.Errorf("invalid bucket name %q", bucket)
	}
	return filepath.Join(s.basePath, bucket), nil
}

// objectPath maps a key onto the bucket directory, refusing keys that would
// escape it.
func (s *LocalStore) objectPath(bucket, key string) (string, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean[1:] != key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(dir, filepath.FromSlash(key)), nil
}
