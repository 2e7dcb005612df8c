package atlas

import (
	"github.com/distribox/atlas/internal/store"
)

// ObjectStore is the capability the engine needs from a bucket-based
// object store. Re-exported from internal/store for convenience.
type ObjectStore = store.ObjectStore

// ObjectInfo describes one listed object.
type ObjectInfo = store.ObjectInfo

// NewMemoryStore returns an in-memory ObjectStore.
func NewMemoryStore() ObjectStore { return store.NewMemoryStore() }

// NewDirStore returns an ObjectStore keeping buckets as directories under dir.
func NewDirStore(dir string) (ObjectStore, error) {
	s, err := store.NewDirStore(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}
