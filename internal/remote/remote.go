// Package remote implements store.ObjectStore over network object stores.
//
// Two backends are provided:
//   - S3Store: any S3-compatible service (aws-sdk-go, multipart streaming uploads)
//   - OCIStore: an OCI distribution registry, one single-layer artifact per key
//
// Both report absent keys as store.ErrNotFound so the registry engine never
// has to know which backend it is talking to.
package remote

import (
	"context"
	"time"
)

const DefaultAttempts = 3

// permanent marks errors that retrying cannot fix (not found, auth, bad request).
type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if p, ok := err.(permanent); ok {
			return zero, p.error
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond // 500ms, 1s, 2s, 4s...
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
