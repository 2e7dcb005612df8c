package remote

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/distribox/atlas/internal/store"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOCIStore(t *testing.T) *OCIStore {
	t.Helper()

	srv := httptest.NewServer(registry.New(registry.Logger(log.New(io.Discard, "", 0))))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	s, err := NewOCIStore(u.Host+"/distribox", WithInsecure(true), WithJobs(2))
	require.NoError(t, err)
	s.attempts = 1
	return s
}

func TestOCIStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestOCIStore(t)

	data := append([]byte("QFI\xfb"), bytes.Repeat([]byte{0x42}, 4096)...)
	err := s.Put(ctx, "registry", "distribox-debian-12.qcow2", bytes.NewReader(data), int64(len(data)), store.ContentTypeImage)
	require.NoError(t, err)

	got, err := s.Get(ctx, "registry", "distribox-debian-12.qcow2")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOCIStorePutNonSeekable(t *testing.T) {
	ctx := context.Background()
	s := newTestOCIStore(t)

	body := "name: Debian 12\nrevision: 5\n"
	r := struct{ io.Reader }{strings.NewReader(body)}
	require.NoError(t, s.Put(ctx, "registry", "distribox-debian-12.metadata.yaml", r, -1, store.ContentTypeMetadata))

	got, err := s.Get(ctx, "registry", "distribox-debian-12.metadata.yaml")
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestOCIStoreSizeMismatch(t *testing.T) {
	s := newTestOCIStore(t)

	err := s.Put(context.Background(), "registry", "k", strings.NewReader("abc"), 5, "")
	assert.Error(t, err)
}

func TestOCIStoreList(t *testing.T) {
	ctx := context.Background()
	s := newTestOCIStore(t)

	objects, err := s.List(ctx, "registry")
	require.NoError(t, err)
	assert.Empty(t, objects, "unknown repository lists as empty")

	for _, key := range []string{"distribox-b.qcow2", "distribox-a.metadata.yaml"} {
		require.NoError(t, s.Put(ctx, "registry", key, strings.NewReader(key), -1, ""))
	}

	objects, err = s.List(ctx, "registry")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "distribox-a.metadata.yaml", objects[0].Key)
	assert.Equal(t, "distribox-b.qcow2", objects[1].Key)
}

func TestOCIStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestOCIStore(t)

	require.NoError(t, s.Put(ctx, "registry", "distribox-a.qcow2", strings.NewReader("a"), 1, ""))
	require.NoError(t, s.Put(ctx, "registry", "distribox-b.qcow2", strings.NewReader("b"), 1, ""))

	require.NoError(t, s.Delete(ctx, "registry", "distribox-a.qcow2"))

	_, err := s.Get(ctx, "registry", "distribox-a.qcow2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	objects, err := s.List(ctx, "registry")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "distribox-b.qcow2", objects[0].Key)

	err = s.Delete(ctx, "registry", "distribox-a.qcow2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOCIStoreGetMissing(t *testing.T) {
	s := newTestOCIStore(t)

	_, err := s.Get(context.Background(), "registry", "distribox-nope.metadata.yaml")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOCIStoreInvalidKey(t *testing.T) {
	s := newTestOCIStore(t)

	err := s.Put(context.Background(), "registry", "nested/key", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}
