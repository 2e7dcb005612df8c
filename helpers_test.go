package atlas

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBucket = "registry"

var qcow2Header = []byte{'Q', 'F', 'I', 0xFB, 0, 0, 0, 3}

func sidecar(image string, revision int) string {
	name := strings.TrimSuffix(strings.TrimPrefix(image, "distribox-"), ".qcow2")
	return fmt.Sprintf(`name: %s
image: %s
version: 12
distribution: %s
family: linux
revision: %d
`, name, image, name, revision)
}

// writeImage creates a managed image and its sidecar in dir.
func writeImage(t *testing.T, dir, image string, revision int) string {
	t.Helper()
	path := filepath.Join(dir, image)
	require.NoError(t, os.WriteFile(path, append(qcow2Header, []byte(image)...), 0o644))
	writeSidecar(t, dir, image, revision)
	return path
}

func writeSidecar(t *testing.T, dir, image string, revision int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataKey(image)), []byte(sidecar(image, revision)), 0o644))
}

// recordingStore wraps an ObjectStore, records every call and injects
// failures per operation and key.
type recordingStore struct {
	ObjectStore

	mu     sync.Mutex
	calls  []string
	puts   map[string]int
	failOn map[string]error // "put:<key>", "get:<key>", "delete:<key>", "list"
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		ObjectStore: NewMemoryStore(),
		puts:        make(map[string]int),
		failOn:      make(map[string]error),
	}
}

func (s *recordingStore) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.failOn[call]
}

func (s *recordingStore) fail(call string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[call] = err
}

func (s *recordingStore) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (s *recordingStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.puts = make(map[string]int)
}

func (s *recordingStore) List(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	if err := s.record("list"); err != nil {
		return nil, err
	}
	return s.ObjectStore.List(ctx, bucket)
}

func (s *recordingStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := s.record("get:" + key); err != nil {
		return nil, err
	}
	return s.ObjectStore.Get(ctx, bucket, key)
}

func (s *recordingStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if err := s.record("put:" + key); err != nil {
		return err
	}
	s.mu.Lock()
	s.puts[key]++
	s.mu.Unlock()
	return s.ObjectStore.Put(ctx, bucket, key, r, size, contentType)
}

func (s *recordingStore) Delete(ctx context.Context, bucket, key string) error {
	if err := s.record("delete:" + key); err != nil {
		return err
	}
	return s.ObjectStore.Delete(ctx, bucket, key)
}

func (s *recordingStore) exists(t *testing.T, key string) bool {
	t.Helper()
	objects, err := s.ObjectStore.List(context.Background(), testBucket)
	require.NoError(t, err)
	for _, obj := range objects {
		if obj.Key == key {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T, opts ...OpenOption) (*Engine, *recordingStore) {
	t.Helper()
	s := newRecordingStore()
	e, err := Open(testBucket, append([]OpenOption{WithStore(s)}, opts...)...)
	require.NoError(t, err)
	return e, s
}

func bytesReader(s string) io.Reader { return strings.NewReader(s) }
