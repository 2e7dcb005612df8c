package atlas

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/distribox/atlas/internal/store"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
)

// snapshot is the registry as seen by one listing: valid records and the
// metadata objects that failed validation, both keyed by metadata key.
type snapshot struct {
	records map[string]*ImageMetadata
	invalid map[string]error
}

// lookup returns the record published under key, nil when there is none, or
// the schema error of an invalid record.
func (s *snapshot) lookup(key string) (*ImageMetadata, error) {
	if err, ok := s.invalid[key]; ok {
		return nil, err
	}
	return s.records[key], nil
}

func (s *snapshot) byImage(image string) (*ImageMetadata, bool) {
	for _, m := range s.records {
		if m.Image == image {
			return m, true
		}
	}
	return nil, false
}

// fetchAll lists the bucket once and fetches every metadata object in
// parallel. Store failures abort the listing; a record that fails to parse
// only marks that key invalid.
func (e *Engine) fetchAll(ctx context.Context) (*snapshot, error) {
	objects, err := e.store.List(ctx, e.bucket)
	if err != nil {
		return nil, registryError("list", e.bucket, err)
	}

	snap := &snapshot{
		records: make(map[string]*ImageMetadata),
		invalid: make(map[string]error),
	}

	var keys []string
	for _, obj := range objects {
		if IsMetadataKey(obj.Key) {
			keys = append(keys, obj.Key)
		}
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(e.fetchConcurrency).WithContext(ctx).WithCancelOnError().WithFirstError()

	for _, key := range keys {
		p.Go(func(ctx context.Context) error {
			data, err := e.store.Get(ctx, e.bucket, key)
			if errors.Is(err, store.ErrNotFound) {
				// Deleted since the listing.
				return nil
			}
			if err != nil {
				return registryError("get", key, err)
			}

			m, err := ParseMetadata(data)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				snap.invalid[key] = schemaError(key, err)
				return nil
			}
			snap.records[key] = m
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	e.log.Debug().Int("objects", len(objects)).Int("records", len(snap.records)).Int("invalid", len(snap.invalid)).Msg("registry listed")
	return snap, nil
}

// List returns every valid record of the registry, sorted by image. Records
// that fail validation are left out and reported through the returned
// error, which is then non-nil alongside a usable result.
func (e *Engine) List(ctx context.Context) ([]*ImageMetadata, error) {
	snap, err := e.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*ImageMetadata, 0, len(snap.records))
	for _, m := range snap.records {
		records = append(records, m)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Image < records[j].Image })

	invalid := make([]string, 0, len(snap.invalid))
	for key := range snap.invalid {
		invalid = append(invalid, key)
	}
	sort.Strings(invalid)

	var errs error
	for _, key := range invalid {
		errs = multierr.Append(errs, snap.invalid[key])
	}
	return records, errs
}

// Get fetches and validates the record stored under metadataKey. It returns
// an error wrapping ErrNotFound when the registry has no such record.
func (e *Engine) Get(ctx context.Context, metadataKey string) (*ImageMetadata, error) {
	data, err := e.store.Get(ctx, e.bucket, metadataKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", metadataKey, ErrNotFound)
	}
	if err != nil {
		return nil, registryError("get", metadataKey, err)
	}

	m, err := ParseMetadata(data)
	if err != nil {
		return nil, schemaError(metadataKey, err)
	}
	return m, nil
}
