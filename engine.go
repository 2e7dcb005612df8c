package atlas

import (
	"github.com/rs/zerolog"
)

// Engine synchronizes local qcow2 images with the registry kept in one
// bucket of an object store.
type Engine struct {
	bucket           string
	store            ObjectStore
	log              zerolog.Logger
	concurrency      int
	fetchConcurrency int
	observer         Observer
}

// Open creates an engine for bucket. The bucket name and the store are
// passed explicitly; the engine never reads the environment.
func Open(bucket string, opts ...OpenOption) (*Engine, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Store == nil {
		return nil, ErrNoStore
	}

	return &Engine{
		bucket:           bucket,
		store:            options.Store,
		log:              options.Logger.With().Str("bucket", bucket).Logger(),
		concurrency:      options.Concurrency,
		fetchConcurrency: options.FetchConcurrency,
		observer:         options.Observer,
	}, nil
}

func (e *Engine) Bucket() string { return e.bucket }

func (e *Engine) observe(o Outcome) {
	if e.observer != nil {
		e.observer.Observe(o)
	}
}
