// Package store defines the object-store capability the registry engine
// depends on, plus a filesystem implementation.
//
// The capability is what every S3-like service offers:
//   - List/Get/Put/Delete over a named bucket
//   - Put streams from an io.Reader, never requires the body in memory
//   - Get/Delete report ErrNotFound for absent keys
package store

import (
	"context"
	"errors"
	"io"
)

// Content types used for registry objects.
const (
	ContentTypeImage    = "application/octet-stream"
	ContentTypeMetadata = "application/yaml"
)

// ErrNotFound is returned by Get and Delete when the key does not exist.
var ErrNotFound = errors.New("store: object not found")

// ObjectInfo describes one object returned by List.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore handles object storage over named buckets.
type ObjectStore interface {
	// List returns every object in the bucket.
	List(ctx context.Context, bucket string) ([]ObjectInfo, error)

	// Get returns the full content of an object.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put writes an object, streaming size bytes from r.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error

	// Delete removes an object.
	Delete(ctx context.Context, bucket, key string) error
}
