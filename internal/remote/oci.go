package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"regexp"
	"sort"

	"github.com/distribox/atlas/internal/store"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// MediaTypeObject is the layer media type of every object pushed by OCIStore.
const MediaTypeObject types.MediaType = "application/vnd.distribox.object.v1"

const (
	labelKey         = "dev.distribox.key"
	labelContentType = "dev.distribox.content-type"
)

// OCIStore maps the object-store capability onto an OCI registry:
// bucket → repository "<base>/<bucket>", key → tag, object → an artifact
// whose single uncompressed layer is the object content.
type OCIStore struct {
	base     string
	auth     Authenticator
	insecure bool
	jobs     int
	attempts int
}

// OCIOption configures an OCIStore.
type OCIOption func(*OCIStore)

// WithAuthenticator sets explicit registry credentials.
func WithAuthenticator(auth Authenticator) OCIOption {
	return func(s *OCIStore) { s.auth = auth }
}

// WithInsecure allows plain-HTTP registries.
func WithInsecure(insecure bool) OCIOption {
	return func(s *OCIStore) { s.insecure = insecure }
}

// WithJobs sets the number of parallel blob uploads per push.
func WithJobs(n int) OCIOption {
	return func(s *OCIStore) {
		if n > 0 {
			s.jobs = n
		}
	}
}

// NewOCIStore creates a store under a registry namespace such as
// "ghcr.io/distribox".
func NewOCIStore(base string, opts ...OCIOption) (*OCIStore, error) {
	s := &OCIStore{base: base, jobs: 4, attempts: DefaultAttempts}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.repository("probe"); err != nil {
		return nil, fmt.Errorf("invalid repository base %q: %w", base, err)
	}
	return s, nil
}

func (s *OCIStore) String() string { return s.base }

func (s *OCIStore) nameOptions() []name.Option {
	if s.insecure {
		return []name.Option{name.Insecure}
	}
	return nil
}

func (s *OCIStore) repository(bucket string) (name.Repository, error) {
	return name.NewRepository(path.Join(s.base, bucket), s.nameOptions()...)
}

var tagPattern = regexp.MustCompile(`^[\w][\w.-]{0,127}$`)

func (s *OCIStore) tag(bucket, key string) (name.Tag, error) {
	if !tagPattern.MatchString(key) {
		return name.Tag{}, fmt.Errorf("key %q is not a valid tag", key)
	}
	repo, err := s.repository(bucket)
	if err != nil {
		return name.Tag{}, err
	}
	tag, err := name.NewTag(repo.String()+":"+key, s.nameOptions()...)
	if err != nil {
		return name.Tag{}, fmt.Errorf("key %q is not a valid tag: %w", key, err)
	}
	return tag, nil
}

func (s *OCIStore) remoteOptions(ctx context.Context, repo name.Repository) []remote.Option {
	return []remote.Option{
		remote.WithContext(ctx),
		authOption(s.auth, repo.RegistryStr()),
		remote.WithJobs(s.jobs),
	}
}

// List returns one object per tag. Sizes are not resolved (that would cost a
// manifest fetch per tag) and are reported as zero.
func (s *OCIStore) List(ctx context.Context, bucket string) ([]store.ObjectInfo, error) {
	repo, err := s.repository(bucket)
	if err != nil {
		return nil, err
	}

	tags, err := retry(ctx, s.attempts, func() ([]string, error) {
		tags, err := remote.List(repo, s.remoteOptions(ctx, repo)...)
		return tags, classify(err)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", repo, err)
	}

	sort.Strings(tags)
	objects := make([]store.ObjectInfo, 0, len(tags))
	for _, tag := range tags {
		objects = append(objects, store.ObjectInfo{Key: tag})
	}
	return objects, nil
}

func (s *OCIStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	ref, err := s.tag(bucket, key)
	if err != nil {
		return nil, err
	}

	img, err := retry(ctx, s.attempts, func() (v1.Image, error) {
		img, err := remote.Image(ref, s.remoteOptions(ctx, ref.Context())...)
		return img, classify(err)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", ref, store.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("get layers: %w", err)
	}
	if len(layers) != 1 {
		return nil, fmt.Errorf("%s: expected 1 layer, got %d", ref, len(layers))
	}

	rc, err := layers[0].Compressed()
	if err != nil {
		return nil, fmt.Errorf("read layer: %w", err)
	}
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("read layer: %w", err)
	}
	return data, nil
}

// Put pushes r as a single-layer artifact. The layer digest must be known
// before upload, so r is read twice: seekable readers (files) are rewound,
// anything else is spooled to a temporary file first.
func (s *OCIStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	ref, err := s.tag(bucket, key)
	if err != nil {
		return err
	}

	rs, cleanup, err := seekable(r)
	if err != nil {
		return err
	}
	defer cleanup()

	layer, err := newObjectLayer(rs)
	if err != nil {
		return fmt.Errorf("hash %s: %w", key, err)
	}
	if size >= 0 && layer.size != size {
		return fmt.Errorf("%s: read %d bytes, expected %d", key, layer.size, size)
	}

	img, err := buildImage(layer, key, contentType)
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	_, err = retry(ctx, s.attempts, func() (struct{}, error) {
		return struct{}{}, classify(remote.Write(ref, img, s.remoteOptions(ctx, ref.Context())...))
	})
	if err != nil {
		return fmt.Errorf("push %s: %w", ref, err)
	}
	return nil
}

// Delete removes the tag. Registries that refuse tag deletion get the
// manifest deleted by digest instead.
func (s *OCIStore) Delete(ctx context.Context, bucket, key string) error {
	ref, err := s.tag(bucket, key)
	if err != nil {
		return err
	}
	opts := s.remoteOptions(ctx, ref.Context())

	desc, err := retry(ctx, s.attempts, func() (*v1.Descriptor, error) {
		desc, err := remote.Head(ref, opts...)
		return desc, classify(err)
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w", ref, store.ErrNotFound)
		}
		return fmt.Errorf("resolve %s: %w", ref, err)
	}

	err = remote.Delete(ref, opts...)
	if err != nil && isUnsupported(err) {
		err = remote.Delete(ref.Context().Digest(desc.Digest.String()), opts...)
	}
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w", ref, store.ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func buildImage(layer v1.Layer, key, contentType string) (v1.Image, error) {
	img, err := mutate.AppendLayers(empty.Image, layer)
	if err != nil {
		return nil, err
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}
	cfg = cfg.DeepCopy()
	cfg.Config.Labels = map[string]string{
		labelKey:         key,
		labelContentType: contentType,
	}

	img, err = mutate.ConfigFile(img, cfg)
	if err != nil {
		return nil, err
	}
	img = mutate.MediaType(img, types.OCIManifestSchema1)
	return mutate.ConfigMediaType(img, types.OCIConfigJSON), nil
}

// objectLayer implements v1.Layer over a seekable reader without loading it
// into memory. Content is stored as-is, so compressed and uncompressed views
// are identical.
type objectLayer struct {
	rs     io.ReadSeeker
	start  int64
	digest v1.Hash
	size   int64
}

func newObjectLayer(rs io.ReadSeeker) (*objectLayer, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	h, n, err := v1.SHA256(rs)
	if err != nil {
		return nil, err
	}
	return &objectLayer{rs: rs, start: start, digest: h, size: n}, nil
}

func (l *objectLayer) Digest() (v1.Hash, error) { return l.digest, nil }
func (l *objectLayer) DiffID() (v1.Hash, error) { return l.digest, nil }

func (l *objectLayer) Compressed() (io.ReadCloser, error) {
	if _, err := l.rs.Seek(l.start, io.SeekStart); err != nil {
		return nil, err
	}
	return io.NopCloser(io.LimitReader(l.rs, l.size)), nil
}

func (l *objectLayer) Uncompressed() (io.ReadCloser, error) { return l.Compressed() }
func (l *objectLayer) Size() (int64, error)                 { return l.size, nil }
func (l *objectLayer) MediaType() (types.MediaType, error)  { return MediaTypeObject, nil }

func seekable(r io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}

	f, err := os.CreateTemp("", "atlas-oci-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create spool file: %w", err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}
	if _, err := io.Copy(f, r); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("spool: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("spool: %w", err)
	}
	return f, cleanup, nil
}

// classify marks client errors as permanent so retry gives up immediately.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var terr *transport.Error
	if errors.As(err, &terr) && terr.StatusCode >= 400 && terr.StatusCode < 500 &&
		terr.StatusCode != http.StatusTooManyRequests && terr.StatusCode != http.StatusRequestTimeout {
		return permanent{err}
	}
	return err
}

func isNotFound(err error) bool {
	var terr *transport.Error
	if !errors.As(err, &terr) {
		return false
	}
	if terr.StatusCode == http.StatusNotFound {
		return true
	}
	for _, d := range terr.Errors {
		switch d.Code {
		case transport.NameUnknownErrorCode, transport.ManifestUnknownErrorCode:
			return true
		}
	}
	return false
}

func isUnsupported(err error) bool {
	var terr *transport.Error
	if !errors.As(err, &terr) {
		return false
	}
	if terr.StatusCode == http.StatusMethodNotAllowed {
		return true
	}
	for _, d := range terr.Errors {
		if d.Code == transport.UnsupportedErrorCode {
			return true
		}
	}
	return false
}
